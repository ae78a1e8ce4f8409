package app_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/roundtable/internal/app"
	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

func newOrchestrator() *app.Orchestrator {
	set := core.Settings{
		MinParticipants: 10, // keep discussions idle unless a test wants them
		MaxSpeakers:     6,
		TurnSeconds:     60,
		MaxRounds:       3,
		TickInterval:    5 * time.Millisecond,
	}
	return &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRooms(set, nil, nil),
	}
}

func bind(t *testing.T, o *app.Orchestrator, addr domain.Addr, identity domain.Identity) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	o.Registry.Bind(addr, conn, func() {})
	if identity != "" {
		require.NoError(t, o.Hello(addr, identity))
	}
	return conn
}

func TestJoinCreatesRoomAndBroadcastsRoster(t *testing.T) {
	o := newOrchestrator()
	conn := bind(t, o, "t1", "alice")

	snap, err := o.Join("t1", "lobby", "", "Alice", domain.RoleSpeaker)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, domain.Identity("alice"), snap[0].Identity, "identity falls back to the hello claim")

	assert.Equal(t, 1, o.Rooms.Count())
	roomID, ok := o.Registry.RoomOf("t1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("lobby"), roomID)

	ev, ok := conn.lastOfType("roster-changed")
	require.True(t, ok)
	assert.Len(t, ev["participants"], 1)
}

func TestJoinWithoutIdentityFails(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "")

	_, err := o.Join("t1", "lobby", "", "", domain.RoleListener)
	assert.ErrorIs(t, err, domain.ErrIdentityEmpty)
	assert.Equal(t, 0, o.Rooms.Count(), "failed join must not leak a room")
}

func TestJoinUnboundTransportFails(t *testing.T) {
	o := newOrchestrator()
	_, err := o.Join("ghost", "lobby", "alice", "", domain.RoleListener)
	assert.ErrorIs(t, err, app.ErrNoSession)
}

func TestTransportBelongsToOneRoom(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")
	bind(t, o, "t2", "bob")

	_, err := o.Join("t1", "room-a", "", "", domain.RoleListener)
	require.NoError(t, err)
	_, err = o.Join("t2", "room-a", "", "", domain.RoleListener)
	require.NoError(t, err)

	// Joining a second room evicts the transport from the first.
	_, err = o.Join("t1", "room-b", "", "", domain.RoleListener)
	require.NoError(t, err)

	roomID, _ := o.Registry.RoomOf("t1")
	assert.Equal(t, domain.RoomID("room-b"), roomID)

	roomA, ok := o.Rooms.Get("room-a")
	require.True(t, ok)
	require.Len(t, roomA.Snapshot(), 1)
	assert.Equal(t, domain.Identity("bob"), roomA.Snapshot()[0].Identity)
}

func TestEvictionRemovesPriorIdentity(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "")

	// Same transport, different identity per room: the eviction must
	// remove the seat held under the old identity, not the new one.
	_, err := o.Join("t1", "room-a", "alice", "", domain.RoleListener)
	require.NoError(t, err)
	_, err = o.Join("t1", "room-b", "bob", "", domain.RoleListener)
	require.NoError(t, err)

	_, ok := o.Rooms.Get("room-a")
	assert.False(t, ok, "room-a must be torn down once its only seat is evicted")

	roomB, ok := o.Rooms.Get("room-b")
	require.True(t, ok)
	snap := roomB.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, domain.Identity("bob"), snap[0].Identity)
}

func TestEvictionLeavesNoGhostSeat(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "")
	bind(t, o, "t2", "")

	_, err := o.Join("t1", "room-a", "alice", "", domain.RoleListener)
	require.NoError(t, err)
	_, err = o.Join("t2", "room-a", "carol", "", domain.RoleListener)
	require.NoError(t, err)
	_, err = o.Join("t1", "room-b", "bob", "", domain.RoleListener)
	require.NoError(t, err)

	roomA, ok := o.Rooms.Get("room-a")
	require.True(t, ok)
	snap := roomA.Snapshot()
	require.Len(t, snap, 1, "the evicted transport must not keep a seat in room-a")
	assert.Equal(t, domain.Identity("carol"), snap[0].Identity)
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")

	_, err := o.Join("t1", "lobby", "", "", domain.RoleListener)
	require.NoError(t, err)
	require.Equal(t, 1, o.Rooms.Count())

	o.Leave("t1")
	assert.Equal(t, 0, o.Rooms.Count(), "room is torn down when the roster empties")
	_, ok := o.Registry.RoomOf("t1")
	assert.False(t, ok)

	// Connection survives an explicit leave; only disconnect unbinds.
	_, ok = o.Registry.Conn("t1")
	assert.True(t, ok)
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")
	bind(t, o, "t2", "bob")

	_, err := o.Join("t1", "lobby", "", "", domain.RoleListener)
	require.NoError(t, err)
	_, err = o.Join("t2", "lobby", "", "", domain.RoleListener)
	require.NoError(t, err)

	o.OnDisconnect("t1")

	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	require.Len(t, room.Snapshot(), 1)
	_, ok = o.Registry.Conn("t1")
	assert.False(t, ok, "disconnect drops the session record")
}

func TestDisconnectCancelsSessionContext(t *testing.T) {
	o := newOrchestrator()
	cancelled := false
	o.Registry.Bind("t1", &fakeConn{}, func() { cancelled = true })

	o.OnDisconnect("t1")
	assert.True(t, cancelled, "the connection context must not outlive the session")
}

func TestReadyRoleAdvanceRequireRoom(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")

	assert.ErrorIs(t, o.SetReady("t1", true), core.ErrNotInRoom)
	assert.ErrorIs(t, o.ChangeRole("t1", "", domain.RoleSpeaker), core.ErrNotInRoom)
	assert.ErrorIs(t, o.Advance("t1"), core.ErrNotInRoom)
}

func TestChangeRoleDefaultsToSelf(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")
	_, err := o.Join("t1", "lobby", "", "", domain.RoleListener)
	require.NoError(t, err)

	require.NoError(t, o.ChangeRole("t1", "", domain.RoleSpeaker))
	room, _ := o.Rooms.Get("lobby")
	assert.Equal(t, domain.RoleSpeaker, room.Snapshot()[0].Role)
}

func TestRelayDeliversOnlyToDestination(t *testing.T) {
	o := newOrchestrator()
	bind(t, o, "t1", "alice")
	connB := bind(t, o, "t2", "bob")
	connC := bind(t, o, "t3", "carol")

	payload := json.RawMessage(`{"sdp":"v=0 fake"}`)
	o.Relay("t1", app.KindOffer, "t2", payload)

	ev, ok := connB.lastOfType(app.EvSignalRelayed)
	require.True(t, ok)
	assert.Equal(t, app.KindOffer, ev["kind"])
	assert.Equal(t, "t1", ev["from"])
	inner := ev["payload"].(map[string]any)
	assert.Equal(t, "v=0 fake", inner["sdp"])

	_, ok = connC.lastOfType(app.EvSignalRelayed)
	assert.False(t, ok, "relay must never reach a transport other than the destination")
}

func TestRelayDropsSilentlyWhenDestinationAbsent(t *testing.T) {
	o := newOrchestrator()
	connA := bind(t, o, "t1", "alice")

	o.Relay("t1", app.KindCandidate, "gone", json.RawMessage(`{}`))

	// No error event, no echo: the sender sees nothing.
	assert.Empty(t, connA.received())
}
