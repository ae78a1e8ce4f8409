package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkeye/roundtable/internal/domain"
)

// RedisSink appends session summaries to a redis list per room plus a
// global counter, so ended sessions survive process restart even though
// live state does not.
type RedisSink struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisSink(addr, keyPrefix string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = "roundtable:"
	}
	return &RedisSink{client: client, keyPrefix: keyPrefix}, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) sessionsKey(id domain.RoomID) string {
	return fmt.Sprintf("%ssessions:%s", s.keyPrefix, id)
}

func (s *RedisSink) RecordSession(ctx context.Context, summary domain.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, s.sessionsKey(summary.RoomID), data)
	pipe.Incr(ctx, s.keyPrefix+"sessions:total")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Sessions returns recorded summaries for one room, newest first.
func (s *RedisSink) Sessions(ctx context.Context, id domain.RoomID) ([]domain.SessionSummary, error) {
	raw, err := s.client.LRange(ctx, s.sessionsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	out := make([]domain.SessionSummary, 0, len(raw))
	for _, item := range raw {
		var summary domain.SessionSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}
