package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/tripchat/internal/domain"
)

const sessionPrefix = "tripchat:session:"

// RedisStore implements Store on Redis lists: one marker key per session plus
// a message list and an event list.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL. A positive ttl expires idle sessions;
// zero keeps them forever.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(id string) string  { return sessionPrefix + id }
func messagesKey(id string) string { return sessionPrefix + id + ":messages" }
func eventsKey(id string) string   { return sessionPrefix + id + ":events" }

// touch creates the session marker and refreshes expiry within a pipeline.
func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	pipe.SetNX(ctx, sessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), 0)
	if s.ttl > 0 {
		pipe.Expire(ctx, sessionKey(sessionID), s.ttl)
		pipe.Expire(ctx, messagesKey(sessionID), s.ttl)
		pipe.Expire(ctx, eventsKey(sessionID), s.ttl)
	}
}

// Create creates a session; it is a no-op for an existing id.
func (s *RedisStore) Create(ctx context.Context, sessionID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.touch(ctx, pipe, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Exists reports whether the session exists.
func (s *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Delete removes a session with its messages and events.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	var marker *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		marker = pipe.Del(ctx, sessionKey(sessionID))
		pipe.Del(ctx, messagesKey(sessionID), eventsKey(sessionID))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return marker.Val() > 0, nil
}

// Get returns the session's messages, creating the session if needed.
func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var items *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.touch(ctx, pipe, sessionID)
		items = pipe.LRange(ctx, messagesKey(sessionID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	messages := make([]domain.Message, 0, len(items.Val()))
	for _, item := range items.Val() {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Append adds messages to the end of the session atomically.
func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...domain.Message) error {
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.RPush(ctx, messagesKey(sessionID), values...)
		}
		s.touch(ctx, pipe, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// RecordEvent appends an event to the session's event list.
func (s *RedisStore) RecordEvent(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, eventsKey(event.SessionID), data)
		s.touch(ctx, pipe, event.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents returns events with ts > afterTs in recording order.
func (s *RedisStore) ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.Event, error) {
	items, err := s.rdb.LRange(ctx, eventsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		var e domain.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	return filterEvents(events, afterTs, limit), nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
