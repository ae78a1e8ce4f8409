// Package domain contains entity types without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const (
	MaxIdentityLen = 64
	MaxHandleLen   = 36
)

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
	ErrHandleTooLong   = errors.New("display handle too long")
	ErrInvalidRole     = errors.New("invalid role")
)

// Identity is the stable, client-chosen id of a participant. It survives
// reconnects, unlike the transport address.
type Identity string

// Addr is the ephemeral transport address of one connection. A reconnect
// gets a fresh one.
type Addr string

type Role string

const (
	RoleSpeaker  Role = "speaker"
	RoleListener Role = "listener"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSpeaker, RoleListener:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// Participant is one roster entry. Keyed by Identity; Addr is replaced in
// place when the same identity reconnects.
type Participant struct {
	Identity Identity  `json:"identity"`
	Handle   string    `json:"handle"`
	Role     Role      `json:"role"`
	Ready    bool      `json:"ready"`
	Addr     Addr      `json:"addr"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewParticipant avoids ad-hoc struct literals in adapters and keeps the
// length checks in one place.
func NewParticipant(identity Identity, handle string, role Role, addr Addr) (Participant, error) {
	if identity == "" {
		return Participant{}, ErrIdentityEmpty
	}
	if len(identity) > MaxIdentityLen {
		return Participant{}, ErrIdentityTooLong
	}
	if len(handle) > MaxHandleLen {
		return Participant{}, ErrHandleTooLong
	}
	if handle == "" {
		handle = string(identity)
	}
	return Participant{
		Identity: identity,
		Handle:   handle,
		Role:     role,
		Addr:     addr,
		JoinedAt: time.Now(),
	}, nil
}
