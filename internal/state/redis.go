package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "aiva:history:"

// RedisHistory stores transcripts in a Redis list per session, for
// deployments that run more than one Aiva instance behind a balancer.
type RedisHistory struct {
	client *redis.Client
}

func NewRedisHistory(addr string) *RedisHistory {
	return &RedisHistory{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// NewRedisHistoryClient wraps an existing client (used by tests).
func NewRedisHistoryClient(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

func (s *RedisHistory) Append(ctx context.Context, sessionID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("history append: marshal: %w", err)
	}
	if err := s.client.RPush(ctx, historyKeyPrefix+sessionID, data).Err(); err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	return nil
}

func (s *RedisHistory) Recent(ctx context.Context, sessionID string, n int) ([]Message, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := s.client.LRange(ctx, historyKeyPrefix+sessionID, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisHistory) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, historyKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("history delete: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisHistory) Close() error {
	return s.client.Close()
}
