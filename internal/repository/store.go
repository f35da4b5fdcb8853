// Package repository provides the session store and its implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/domain"
)

// Store persists conversations and their step events.
//
// Sessions come into existence on Create or on the first Get/Append of an
// unknown id. Messages are only ever appended and Get returns them in append
// order as a copy the caller may mutate.
type Store interface {
	// Session operations
	Create(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) (bool, error)

	// Message operations
	Get(ctx context.Context, sessionID string) ([]domain.Message, error)
	Append(ctx context.Context, sessionID string, messages ...domain.Message) error

	// Event operations
	RecordEvent(ctx context.Context, event *domain.Event) error
	ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}

// Open builds the store selected by cfg.SessionStore.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case "", config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.DatabaseURL)
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
