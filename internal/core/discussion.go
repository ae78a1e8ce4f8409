package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/domain"
)

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

const (
	topicFetchTimeout = 10 * time.Second
	sinkTimeout       = 5 * time.Second
)

// discussion is the engine state. Mutated only under Room.mu; the speaker
// field is an index into the roster, not an identity, so roster mutations
// must re-anchor it.
type discussion struct {
	phase     Phase
	topic     domain.Topic
	speaker   int
	remaining int
	round     int
	startedAt time.Time

	// starting guards the window between the start decision and topic
	// arrival so two roster mutations cannot activate twice.
	starting bool

	// epoch identifies the current countdown. A countdown callback whose
	// epoch no longer matches is stale and must not act; bumping the epoch
	// plus closing cancel is what "cancel the timer" means here, so at most
	// one live countdown exists per room.
	epoch  uint64
	cancel chan struct{}
}

// evaluateStartLocked checks the Idle→Active guard. Called after every
// roster mutation.
func (r *Room) evaluateStartLocked() {
	if r.disc.phase != PhaseIdle || r.disc.starting {
		return
	}
	if len(r.seats) < r.set.MinParticipants || r.readyCountLocked() < r.set.MinParticipants {
		return
	}
	r.disc.starting = true
	go r.activate()
}

// activate fetches the topic off the event path, then re-validates under
// the lock before transitioning. Topic-source failure never blocks or
// fails session start.
func (r *Room) activate() {
	topic := domain.FallbackTopic()
	if r.topics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), topicFetchTimeout)
		t, err := r.topics.DiscussionTopic(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("module", "core.discussion").Str("room", string(r.id)).
				Msg("topic source failed, using fallback")
		} else {
			topic = t
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.disc.starting = false

	// State may have moved while the fetch was in flight.
	if r.disc.phase != PhaseIdle {
		return
	}
	if len(r.seats) < r.set.MinParticipants || r.readyCountLocked() < r.set.MinParticipants {
		return
	}

	r.disc.phase = PhaseActive
	r.disc.topic = topic
	r.disc.round = 1
	r.disc.speaker = 0
	r.disc.remaining = r.set.TurnSeconds
	r.disc.startedAt = time.Now()

	log.Info().Str("module", "core.discussion").Str("room", string(r.id)).
		Str("topic", topic.Title).Msg("discussion started")
	r.broadcastLocked(DiscussionStarted{
		Type:     EvDiscussionStarted,
		Topic:    topic,
		Speaker:  r.seats[0].p,
		Duration: r.set.TurnSeconds,
	})
	r.startCountdownLocked()
}

// advanceLocked is the single algorithm for both turn expiry and explicit
// advance: cancel the countdown, rotate the speaker, count rounds, end at
// the cap, otherwise announce the next speaker and restart the countdown.
func (r *Room) advanceLocked() {
	r.stopCountdownLocked()

	n := len(r.seats)
	if n == 0 {
		r.endLocked()
		return
	}
	r.disc.speaker = (r.disc.speaker + 1) % n
	if r.disc.speaker == 0 {
		r.disc.round++
	}
	if r.disc.round > r.set.MaxRounds {
		r.endLocked()
		return
	}
	r.disc.remaining = r.set.TurnSeconds
	r.broadcastLocked(SpeakerChanged{
		Type:          EvSpeakerChanged,
		Speaker:       r.seats[r.disc.speaker].p,
		TimeRemaining: r.disc.remaining,
		Round:         r.disc.round,
	})
	r.startCountdownLocked()
}

func (r *Room) endLocked() {
	r.stopCountdownLocked()
	r.disc.phase = PhaseEnded

	rounds := r.disc.round
	if rounds > r.set.MaxRounds {
		rounds = r.set.MaxRounds
	}
	log.Info().Str("module", "core.discussion").Str("room", string(r.id)).
		Int("rounds", rounds).Msg("discussion ended")
	r.broadcastLocked(DiscussionEnded{Type: EvDiscussionEnded})

	if r.sink == nil {
		return
	}
	summary := domain.SessionSummary{
		RoomID:       r.id,
		Topic:        r.disc.topic.Title,
		Rounds:       rounds,
		Participants: len(r.seats),
		StartedAt:    r.disc.startedAt,
		EndedAt:      time.Now(),
	}
	summary.Duration = int64(summary.EndedAt.Sub(summary.StartedAt) / time.Second)
	go func(sink Sink, s domain.SessionSummary) {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := sink.RecordSession(ctx, s); err != nil {
			log.Warn().Err(err).Str("module", "core.discussion").
				Str("room", string(s.RoomID)).Msg("session record failed")
		}
	}(r.sink, summary)
}

// reconcileLocked re-anchors the engine after a removal at index idx while
// active. The roster has no notion of "current speaker", so the coupling
// lives here and runs on every mutation.
func (r *Room) reconcileLocked(idx int) {
	if r.disc.phase != PhaseActive {
		return
	}
	n := len(r.seats)
	if n < r.set.MinParticipants {
		r.endLocked()
		return
	}
	switch {
	case idx < r.disc.speaker:
		r.disc.speaker--
	case idx == r.disc.speaker:
		// The successor at the same position takes over immediately; the
		// running countdown keeps counting.
		r.disc.speaker %= n
		r.broadcastLocked(SpeakerChanged{
			Type:          EvSpeakerChanged,
			Speaker:       r.seats[r.disc.speaker].p,
			TimeRemaining: r.disc.remaining,
			Round:         r.disc.round,
		})
	}
	if r.disc.speaker >= n {
		r.disc.speaker %= n
	}
}

func (r *Room) startCountdownLocked() {
	r.stopCountdownLocked()
	r.disc.epoch++
	cancel := make(chan struct{})
	r.disc.cancel = cancel
	go r.countdown(r.disc.epoch, cancel)
}

func (r *Room) stopCountdownLocked() {
	if r.disc.cancel != nil {
		close(r.disc.cancel)
		r.disc.cancel = nil
	}
	r.disc.epoch++
}

func (r *Room) countdown(epoch uint64, cancel <-chan struct{}) {
	ticker := time.NewTicker(r.set.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			if !r.onTick(epoch) {
				return
			}
		}
	}
}

// onTick re-validates engine state before acting; a tick scheduled before a
// transition must never trust what it saw at schedule time. Returns false
// once this countdown is obsolete.
func (r *Room) onTick(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.disc.epoch || r.disc.phase != PhaseActive {
		return false
	}
	r.disc.remaining--
	if r.disc.remaining <= 0 {
		r.advanceLocked()
		return false
	}
	r.broadcastLocked(TickEvent{Type: EvTick, TimeRemaining: r.disc.remaining})
	return true
}

// Read-only accessors, mainly for the REST API and tests.

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disc.phase
}

func (r *Room) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disc.round
}

func (r *Room) TimeRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disc.remaining
}

// CurrentSpeaker returns the participant holding speaking rights, if any.
func (r *Room) CurrentSpeaker() (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disc.phase != PhaseActive || r.disc.speaker >= len(r.seats) {
		return domain.Participant{}, false
	}
	return r.seats[r.disc.speaker].p, true
}

// CountdownPending reports whether a countdown is live. At most one may
// exist per room at any time.
func (r *Room) CountdownPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disc.cancel != nil
}
