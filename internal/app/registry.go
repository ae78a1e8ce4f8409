package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

// sessionEntry is the explicit per-connection context record: transport
// address, claimed identity, current room, live connection, and the cancel
// for the connection-scoped context. Nothing else in the process knows
// which room a transport belongs to.
type sessionEntry struct {
	Identity domain.Identity
	RoomID   domain.RoomID
	Conn     core.SignalConnection
	Cancel   context.CancelFunc
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.Addr]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.Addr]*sessionEntry)}
}

func (r *Registry) Bind(addr domain.Addr, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[addr] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("addr", string(addr)).Msg("bound session")
}

func (r *Registry) Unbind(addr domain.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, addr)
	log.Info().Str("module", "app.registry").Str("addr", string(addr)).Msg("unbound session")
}

// SetIdentity records the identity claimed in the hello handshake.
// Trusted as-is; the system is deliberately unauthenticated.
func (r *Registry) SetIdentity(addr domain.Addr, id domain.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[addr]
	if !ok {
		return false
	}
	e.Identity = id
	return true
}

func (r *Registry) Identity(addr domain.Addr) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[addr]
	if !ok || e.Identity == "" {
		return "", false
	}
	return e.Identity, true
}

func (r *Registry) SetRoom(addr domain.Addr, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[addr]
	if !ok {
		return false
	}
	e.RoomID = roomID
	return true
}

func (r *Registry) ClearRoom(addr domain.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[addr]; ok {
		e.RoomID = ""
	}
}

// RoomOf resolves the room a transport currently belongs to, if any.
func (r *Registry) RoomOf(addr domain.Addr) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[addr]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

// Conn returns the live connection for a transport address. The relay uses
// this to check that a destination is currently connected.
func (r *Registry) Conn(addr domain.Addr) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[addr]
	if !ok || e.Conn == nil {
		return nil, false
	}
	return e.Conn, true
}

func (r *Registry) Cancel(addr domain.Addr) bool {
	r.mu.RLock()
	e, ok := r.sessions[addr]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
