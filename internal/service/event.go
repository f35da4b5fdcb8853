package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/tripchat/internal/domain"
)

// recordEvent records an event to the store and publishes it.
func (s *Service) recordEvent(ctx context.Context, sessionID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:   "evt_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
		Type:      eventType,
		Payload:   payloadBytes,
	}

	if err := s.store.RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	if s.publisher != nil {
		s.publisher.PublishEvent(*event)
	}
	return nil
}

// sessionRecorder records orchestrator steps against one session.
type sessionRecorder struct {
	s         *Service
	sessionID string
}

func (r sessionRecorder) Record(ctx context.Context, eventType domain.EventType, payload interface{}) {
	if err := r.s.recordEvent(ctx, r.sessionID, eventType, payload); err != nil {
		r.s.logger.Warn("failed to record event", "session_id", r.sessionID, "type", eventType, "error", err)
	}
}
