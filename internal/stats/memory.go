package stats

import (
	"context"
	"sync"

	"github.com/dkeye/roundtable/internal/domain"
)

// MemorySink keeps summaries in process memory. Default sink, and the one
// tests use.
type MemorySink struct {
	mu       sync.Mutex
	sessions []domain.SessionSummary
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) RecordSession(_ context.Context, summary domain.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, summary)
	return nil
}

// Sessions returns a copy of everything recorded so far.
func (s *MemorySink) Sessions() []domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionSummary, len(s.sessions))
	copy(out, s.sessions)
	return out
}
