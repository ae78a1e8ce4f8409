package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

var ErrNoSession = errors.New("no session for transport")

// Orchestrator is the event gateway core: it resolves a transport address
// to its session context, dispatches into roster and engine, and keeps the
// transport→room association single-valued.
type Orchestrator struct {
	Registry *Registry
	Rooms    *Rooms
}

// Hello records the identity claimed in the one-time handshake payload.
func (o *Orchestrator) Hello(addr domain.Addr, identity domain.Identity) error {
	if identity == "" {
		return domain.ErrIdentityEmpty
	}
	if !o.Registry.SetIdentity(addr, identity) {
		return ErrNoSession
	}
	return nil
}

// Join adds the caller to a room, evicting its transport from any
// previously joined room first: a transport belongs to at most one room at
// a time. Returns the updated roster.
func (o *Orchestrator) Join(addr domain.Addr, roomID domain.RoomID, identity domain.Identity, handle string, role domain.Role) ([]domain.Participant, error) {
	conn, ok := o.Registry.Conn(addr)
	if !ok {
		return nil, ErrNoSession
	}
	if identity == "" {
		identity, _ = o.Registry.Identity(addr)
	}
	p, err := domain.NewParticipant(identity, handle, role, addr)
	if err != nil {
		return nil, err
	}

	if prev, ok := o.Registry.RoomOf(addr); ok && prev != roomID {
		// The previous roster entry sits under the identity this transport
		// joined with back then, which may differ from the one requested now.
		prevIdentity, ok := o.Registry.Identity(addr)
		if !ok {
			prevIdentity = identity
		}
		log.Info().Str("module", "app.orchestrator").Str("addr", string(addr)).
			Str("from_room", string(prev)).Msg("evicted from previous room")
		o.leaveRoom(addr, prev, prevIdentity)
	}

	room := o.Rooms.GetOrCreate(roomID)
	snap := room.Join(p, conn)
	o.Registry.SetIdentity(addr, identity)
	o.Registry.SetRoom(addr, roomID)
	return snap, nil
}

// Leave handles both the explicit leave event and transport disconnect.
func (o *Orchestrator) Leave(addr domain.Addr) {
	roomID, ok := o.Registry.RoomOf(addr)
	if !ok {
		return
	}
	identity, ok := o.Registry.Identity(addr)
	if !ok {
		return
	}
	o.leaveRoom(addr, roomID, identity)
}

func (o *Orchestrator) leaveRoom(addr domain.Addr, roomID domain.RoomID, identity domain.Identity) {
	o.Registry.ClearRoom(addr)
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	if _, empty := room.Leave(identity); empty {
		o.Rooms.RemoveIfEmpty(roomID)
	}
}

// OnDisconnect is the implicit leave: roster removal, engine
// re-evaluation, the connection's context cancelled, then the session
// record goes away.
func (o *Orchestrator) OnDisconnect(addr domain.Addr) {
	o.Leave(addr)
	o.Registry.Cancel(addr)
	o.Registry.Unbind(addr)
}

func (o *Orchestrator) SetReady(addr domain.Addr, ready bool) error {
	room, identity, err := o.roomAndIdentity(addr)
	if err != nil {
		return err
	}
	return room.SetReady(identity, ready)
}

// ChangeRole targets the given identity, defaulting to the caller's own.
func (o *Orchestrator) ChangeRole(addr domain.Addr, target domain.Identity, role domain.Role) error {
	room, identity, err := o.roomAndIdentity(addr)
	if err != nil {
		return err
	}
	if target == "" {
		target = identity
	}
	return room.ChangeRole(target, role)
}

func (o *Orchestrator) Advance(addr domain.Addr) error {
	room, _, err := o.roomAndIdentity(addr)
	if err != nil {
		return err
	}
	return room.AdvanceTurn()
}

func (o *Orchestrator) roomAndIdentity(addr domain.Addr) (*core.Room, domain.Identity, error) {
	roomID, ok := o.Registry.RoomOf(addr)
	if !ok {
		return nil, "", core.ErrNotInRoom
	}
	identity, ok := o.Registry.Identity(addr)
	if !ok {
		return nil, "", core.ErrNotInRoom
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, "", core.ErrNotInRoom
	}
	return room, identity, nil
}
