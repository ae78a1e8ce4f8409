package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/roundtable/internal/domain"
	"github.com/dkeye/roundtable/internal/stats"
)

func sampleSummary(room domain.RoomID) domain.SessionSummary {
	started := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	ended := started.Add(9 * time.Minute)
	return domain.SessionSummary{
		RoomID:       room,
		Topic:        "Free discussion",
		Rounds:       3,
		Participants: 2,
		StartedAt:    started,
		EndedAt:      ended,
		Duration:     int64(ended.Sub(started).Seconds()),
	}
}

func TestMemorySinkRecords(t *testing.T) {
	sink := stats.NewMemorySink()
	require.NoError(t, sink.RecordSession(context.Background(), sampleSummary("lobby")))
	require.NoError(t, sink.RecordSession(context.Background(), sampleSummary("lobby")))

	got := sink.Sessions()
	require.Len(t, got, 2)
	assert.Equal(t, domain.RoomID("lobby"), got[0].RoomID)
	assert.Equal(t, 3, got[0].Rounds)
}

func TestRedisSinkRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	sink, err := stats.NewRedisSink(srv.Addr(), "test:")
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.RecordSession(ctx, sampleSummary("lobby")))
	require.NoError(t, sink.RecordSession(ctx, sampleSummary("other")))

	got, err := sink.Sessions(ctx, "lobby")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Free discussion", got[0].Topic)
	assert.Equal(t, 2, got[0].Participants)

	total, err := srv.Get("test:sessions:total")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

func TestRedisSinkUnreachable(t *testing.T) {
	_, err := stats.NewRedisSink("127.0.0.1:1", "")
	assert.Error(t, err)
}

func TestNewPicksSinkByConfig(t *testing.T) {
	srv := miniredis.RunT(t)

	_, memory := stats.New("", "").(*stats.MemorySink)
	assert.True(t, memory, "no address means memory sink")

	_, rds := stats.New(srv.Addr(), "").(*stats.RedisSink)
	assert.True(t, rds)

	_, degraded := stats.New("127.0.0.1:1", "").(*stats.MemorySink)
	assert.True(t, degraded, "unreachable redis degrades to memory")
}
