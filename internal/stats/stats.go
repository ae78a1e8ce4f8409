// Package stats is the analytics sink for ended sessions. Recording is
// fire-and-forget at session boundaries; nothing in the live path depends
// on it.
package stats

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
)

// New selects a sink implementation: redis when an address is configured,
// in-memory otherwise. A redis connection failure degrades to memory so
// the server still comes up.
func New(redisAddr, keyPrefix string) core.Sink {
	if redisAddr == "" {
		return NewMemorySink()
	}
	sink, err := NewRedisSink(redisAddr, keyPrefix)
	if err != nil {
		log.Warn().Err(err).Str("module", "stats").Msg("redis unavailable, using memory sink")
		return NewMemorySink()
	}
	return sink
}
