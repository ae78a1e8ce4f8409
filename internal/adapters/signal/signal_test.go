package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/roundtable/internal/adapters/signal"
	"github.com/dkeye/roundtable/internal/app"
	"github.com/dkeye/roundtable/internal/config"
	"github.com/dkeye/roundtable/internal/core"
)

// dialGateway spins up the controller behind a real server and opens one
// client connection to it.
func dialGateway(t *testing.T) (*websocket.Conn, *app.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:       "release",
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
	}
	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms: app.NewRooms(core.Settings{
			MinParticipants: 10,
			MaxSpeakers:     6,
			TurnSeconds:     60,
			MaxRounds:       3,
			TickInterval:    time.Second,
		}, nil, nil),
	}
	ctl := signal.NewController(orch, cfg)

	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn, orch
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func recvEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestMalformedEventGetsErrorReply(t *testing.T) {
	conn, _ := dialGateway(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	ev := recvEvent(t, conn)
	assert.Equal(t, "error", ev["type"])
	assert.Equal(t, "BAD_PAYLOAD", ev["code"])
}

func TestJoinWithoutRoomRejected(t *testing.T) {
	conn, orch := dialGateway(t)

	send(t, conn, map[string]any{"type": "join"})
	ev := recvEvent(t, conn)
	assert.Equal(t, "join-error", ev["type"])
	assert.Equal(t, "BAD_PAYLOAD", ev["code"])
	assert.Equal(t, 0, orch.Rooms.Count(), "rejected join must not create a room")
}

func TestJoinWithoutIdentityRejected(t *testing.T) {
	conn, _ := dialGateway(t)

	// No hello, no client token: the gateway has no identity to fall
	// back on.
	send(t, conn, map[string]any{"type": "join", "room": "lobby"})
	ev := recvEvent(t, conn)
	assert.Equal(t, "join-error", ev["type"])
	assert.Equal(t, "INVALID_IDENTITY", ev["code"])
}

func TestHelloJoinWhoAmI(t *testing.T) {
	conn, orch := dialGateway(t)

	send(t, conn, map[string]any{"type": "hello", "identity": "alice"})
	ev := recvEvent(t, conn)
	require.Equal(t, "whoami", ev["type"])
	assert.Equal(t, "alice", ev["identity"])
	assert.NotEmpty(t, ev["addr"])

	send(t, conn, map[string]any{"type": "join", "room": "lobby", "name": "Alice"})
	ev = recvEvent(t, conn)
	require.Equal(t, "roster-changed", ev["type"])
	parts := ev["participants"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "alice", parts[0].(map[string]any)["identity"])

	send(t, conn, map[string]any{"type": "whoami"})
	ev = recvEvent(t, conn)
	require.Equal(t, "whoami", ev["type"])
	assert.Equal(t, "lobby", ev["room"])

	assert.Equal(t, 1, orch.Rooms.Count())
}

func TestChangeRoleOutsideRoomRejected(t *testing.T) {
	conn, _ := dialGateway(t)

	send(t, conn, map[string]any{"type": "hello", "identity": "alice"})
	recvEvent(t, conn)

	send(t, conn, map[string]any{"type": "change-role", "role": "speaker"})
	ev := recvEvent(t, conn)
	assert.Equal(t, "role-error", ev["type"])
	assert.Equal(t, "NOT_IN_ROOM", ev["code"])
}

func TestPingPong(t *testing.T) {
	conn, _ := dialGateway(t)

	send(t, conn, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", recvEvent(t, conn)["type"])
}

func TestClientDisconnectTearsDownRoom(t *testing.T) {
	conn, orch := dialGateway(t)

	send(t, conn, map[string]any{"type": "hello", "identity": "alice"})
	recvEvent(t, conn)
	send(t, conn, map[string]any{"type": "join", "room": "lobby"})
	recvEvent(t, conn)
	require.Equal(t, 1, orch.Rooms.Count())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return orch.Rooms.Count() == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnect is an implicit leave")
}
