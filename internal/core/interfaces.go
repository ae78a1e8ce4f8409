package core

import (
	"context"
	"time"

	"github.com/dkeye/roundtable/internal/domain"
)

// Frame is a raw outbound payload (JSON-encoded event).
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// TopicSource is the external topic collaborator. Implementations must
// honor the context deadline; the engine falls back to a static topic on
// any error.
type TopicSource interface {
	DiscussionTopic(ctx context.Context) (domain.Topic, error)
}

// Sink receives session summaries when a discussion ends. Recording is
// fire-and-forget: the engine never blocks on it and ignores failures
// beyond logging.
type Sink interface {
	RecordSession(ctx context.Context, s domain.SessionSummary) error
}

// Settings are the turn-scheduling knobs, resolved from config once at
// startup and shared by every room.
type Settings struct {
	MinParticipants int
	MaxSpeakers     int
	TurnSeconds     int
	MaxRounds       int
	// TickInterval is the countdown resolution. One second in production;
	// tests shrink it so rotation runs in milliseconds.
	TickInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MinParticipants: 1,
		MaxSpeakers:     6,
		TurnSeconds:     60,
		MaxRounds:       3,
		TickInterval:    time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	if s.MinParticipants <= 0 {
		s.MinParticipants = 1
	}
	if s.MaxSpeakers <= 0 {
		s.MaxSpeakers = 6
	}
	if s.TurnSeconds <= 0 {
		s.TurnSeconds = 60
	}
	if s.MaxRounds <= 0 {
		s.MaxRounds = 3
	}
	if s.TickInterval <= 0 {
		s.TickInterval = time.Second
	}
	return s
}
