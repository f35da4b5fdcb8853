package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/tools"
)

// CreateSession starts an empty session under a fresh id.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	sessionID := uuid.New().String()
	if err := s.store.Create(ctx, sessionID); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session created", "session_id", sessionID)
	return sessionID, nil
}

// GetMessages returns the session's messages, creating the session if needed.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	messages, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// DeleteSession removes a session and reports whether it existed.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrSessionRequired
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	deleted, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted {
		s.logger.Info("session deleted", "session_id", sessionID)
	}
	return deleted, nil
}

// ListEvents returns the session's events recorded after afterTs.
func (s *Service) ListEvents(ctx context.Context, sessionID string, afterTs int64, limit int) ([]domain.Event, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	events, err := s.store.ListEvents(ctx, sessionID, afterTs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// Tools returns the definitions of every tool offered to the model.
func (s *Service) Tools() []tools.Definition {
	return s.orchestrator.Tools()
}
