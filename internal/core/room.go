package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/domain"
)

var (
	ErrNotInRoom = errors.New("participant not in room")
	ErrCapacity  = errors.New("speaker capacity exceeded")
	ErrNotActive = errors.New("discussion not active")
)

// seat binds a roster entry to its transport endpoint.
type seat struct {
	p    domain.Participant
	conn SignalConnection
}

// Room is a threadsafe in-memory room: an ordered roster plus the
// discussion engine driving it. Roster order is speaking order.
// It never closes adapter-owned connections.
type Room struct {
	id     domain.RoomID
	set    Settings
	topics TopicSource
	sink   Sink

	mu    sync.Mutex
	seats []*seat
	disc  discussion
}

func NewRoom(id domain.RoomID, set Settings, topics TopicSource, sink Sink) *Room {
	return &Room{
		id:     id,
		set:    set.withDefaults(),
		topics: topics,
		sink:   sink,
		disc:   discussion{phase: PhaseIdle},
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

// Join adds a participant, idempotently by identity: a rejoin replaces the
// entry in place (fresh addr and connection) without disturbing the
// relative order of others. A join asking for the speaker role when all
// speaker slots are taken is admitted as listener; join itself never fails
// on capacity.
func (r *Room) Join(p domain.Participant, conn SignalConnection) []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Role == domain.RoleSpeaker && r.speakerCountLocked(p.Identity) >= r.set.MaxSpeakers {
		p.Role = domain.RoleListener
		log.Info().Str("module", "core.room").Str("room", string(r.id)).
			Str("identity", string(p.Identity)).Msg("speaker slots full, admitted as listener")
	}

	replaced := false
	for _, s := range r.seats {
		if s.p.Identity == p.Identity {
			p.JoinedAt = s.p.JoinedAt
			s.p = p
			s.conn = conn
			replaced = true
			break
		}
	}
	if !replaced {
		r.seats = append(r.seats, &seat{p: p, conn: conn})
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("identity", string(p.Identity)).Bool("rejoin", replaced).Msg("participant joined")

	snap := r.snapshotLocked()
	r.broadcastLocked(RosterChanged{Type: EvRosterChanged, Participants: snap})
	r.evaluateStartLocked()
	return snap
}

// Leave removes a participant by identity. Returns whether the roster is
// now empty; an empty room is torn down by the registry. While active, the
// engine re-anchors its speaker index on every removal.
func (r *Room) Leave(identity domain.Identity) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, s := range r.seats {
		if s.p.Identity == identity {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, len(r.seats) == 0
	}
	r.seats = append(r.seats[:idx], r.seats[idx+1:]...)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("identity", string(identity)).Msg("participant left")

	if len(r.seats) == 0 {
		r.stopCountdownLocked()
		return true, true
	}
	r.broadcastLocked(RosterChanged{Type: EvRosterChanged, Participants: r.snapshotLocked()})
	r.reconcileLocked(idx)
	return true, false
}

func (r *Room) SetReady(identity domain.Identity, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.seatLocked(identity)
	if s == nil {
		return ErrNotInRoom
	}
	s.p.Ready = ready
	r.broadcastLocked(RosterChanged{Type: EvRosterChanged, Participants: r.snapshotLocked()})
	r.evaluateStartLocked()
	return nil
}

// ChangeRole switches a participant between speaker and listener, guarded
// by the speaker-capacity policy.
func (r *Room) ChangeRole(identity domain.Identity, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.seatLocked(identity)
	if s == nil {
		return ErrNotInRoom
	}
	if role == domain.RoleSpeaker && s.p.Role != domain.RoleSpeaker &&
		r.speakerCountLocked(identity) >= r.set.MaxSpeakers {
		return ErrCapacity
	}
	s.p.Role = role
	r.broadcastLocked(RoleChanged{
		Type:         EvRoleChanged,
		Identity:     identity,
		Role:         role,
		Participants: r.snapshotLocked(),
	})
	r.evaluateStartLocked()
	return nil
}

// AdvanceTurn runs the same algorithm as turn expiry. Any room member may
// call it; the design does not restrict it to the current speaker.
func (r *Room) AdvanceTurn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disc.phase != PhaseActive {
		return ErrNotActive
	}
	r.advanceLocked()
	return nil
}

// Close stops any pending countdown. Called on room teardown.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCountdownLocked()
}

func (r *Room) Snapshot() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Info is a read-only view for the REST API.
type Info struct {
	ID           domain.RoomID `json:"id"`
	Participants int           `json:"participants"`
	Ready        int           `json:"ready"`
	Phase        Phase         `json:"phase"`
	Round        int           `json:"round,omitempty"`
	Topic        string        `json:"topic,omitempty"`
}

func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		ID:           r.id,
		Participants: len(r.seats),
		Ready:        r.readyCountLocked(),
		Phase:        r.disc.phase,
		Round:        r.disc.round,
		Topic:        r.disc.topic.Title,
	}
}

func (r *Room) seatLocked(identity domain.Identity) *seat {
	for _, s := range r.seats {
		if s.p.Identity == identity {
			return s
		}
	}
	return nil
}

func (r *Room) speakerCountLocked(except domain.Identity) int {
	n := 0
	for _, s := range r.seats {
		if s.p.Role == domain.RoleSpeaker && s.p.Identity != except {
			n++
		}
	}
	return n
}

func (r *Room) readyCountLocked() int {
	n := 0
	for _, s := range r.seats {
		if s.p.Ready {
			n++
		}
	}
	return n
}

func (r *Room) snapshotLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.seats))
	for _, s := range r.seats {
		out = append(out, s.p)
	}
	return out
}

func (r *Room) broadcastLocked(v any) {
	frame, ok := encode(v)
	if !ok {
		return
	}
	dropped := 0
	for _, s := range r.seats {
		if s.conn == nil {
			continue
		}
		if err := s.conn.TrySend(frame); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).
			Int("dropped", dropped).Msg("broadcast backpressure")
	}
}
