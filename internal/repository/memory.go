package repository

import (
	"context"
	"sync"

	"github.com/xiaot623/tripchat/internal/domain"
)

type memorySession struct {
	messages []domain.Message
	events   []domain.Event
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

// session returns the session, creating it if needed. Caller holds mu.
func (s *MemoryStore) session(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	return sess
}

// Create creates a session; it is a no-op for an existing id.
func (s *MemoryStore) Create(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID)
	return nil
}

// Exists reports whether the session exists.
func (s *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Delete removes a session with its messages and events.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

// Get returns a copy of the session's messages.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneMessages(s.session(sessionID).messages), nil
}

// Append adds messages to the end of the session.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, messages ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID)
	for _, m := range messages {
		sess.messages = append(sess.messages, m.Clone())
	}
	return nil
}

// RecordEvent stores an event under its session.
func (s *MemoryStore) RecordEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(event.SessionID)
	sess.events = append(sess.events, *event)
	return nil
}

// ListEvents returns events with ts > afterTs in recording order.
func (s *MemoryStore) ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return []domain.Event{}, nil
	}
	return filterEvents(sess.events, afterTs, limit), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func filterEvents(events []domain.Event, afterTs int64, limit int) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if afterTs > 0 && e.Ts <= afterTs {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
