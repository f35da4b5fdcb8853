package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/tripchat/internal/domain"
)

var (
	ErrEmptyContent    = errors.New("content must not be empty")
	ErrSessionRequired = errors.New("session_id is required")
)

// ProviderFailureReply is stored as the assistant's answer when the model
// provider cannot be reached.
const ProviderFailureReply = "Sorry, I ran into a problem reaching the assistant. Please try again."

// ChatResult is the session state after a chat turn.
type ChatResult struct {
	Messages  []domain.Message
	Truncated bool
}

// PostChat appends the user's message, runs the orchestrator over the stored
// history and appends everything it produced. Turns on the same session run
// one at a time.
//
// When the model provider fails, the returned error wraps ErrModelProvider and
// the result still carries the session's messages, ending with an apology.
// A turn whose ctx is cancelled stores no reply.
func (s *Service) PostChat(ctx context.Context, req domain.ChatRequest) (*ChatResult, error) {
	if req.SessionID == "" {
		return nil, ErrSessionRequired
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	now := time.Now()
	user := domain.Message{
		Role:      domain.RoleUser,
		Content:   withLocation(req.Content, req.UserLocation),
		Timestamp: &now,
	}
	if err := s.store.Append(ctx, req.SessionID, user); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	history, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	rec := sessionRecorder{s: s, sessionID: req.SessionID}
	rec.Record(ctx, domain.EventTypeChatStarted, domain.ChatStartedPayload{
		ContentLength: len(req.Content),
		HistoryLength: len(history),
		HasLocation:   req.UserLocation != nil,
	})

	result, err := s.orchestrator.Process(ctx, user.Content, history, s.maxIterations, WithRecorder(rec))
	if err != nil && ctx.Err() != nil {
		s.logger.Warn("chat abandoned", "session_id", req.SessionID, "error", err)
		return nil, fmt.Errorf("chat abandoned: %w", ctx.Err())
	}
	if err != nil {
		return s.failChat(ctx, req.SessionID, rec, err)
	}

	if err := s.store.Append(ctx, req.SessionID, result.NewMessages...); err != nil {
		return nil, fmt.Errorf("failed to store messages: %w", err)
	}

	rec.Record(ctx, domain.EventTypeChatDone, domain.ChatDonePayload{
		Iterations:  result.Iterations,
		ModelCalls:  result.ModelCalls,
		NewMessages: len(result.NewMessages),
		Truncated:   result.Truncated,
	})

	messages, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return &ChatResult{Messages: messages, Truncated: result.Truncated}, nil
}

// failChat stores the apology reply and returns the session alongside cause.
func (s *Service) failChat(ctx context.Context, sessionID string, rec Recorder, cause error) (*ChatResult, error) {
	s.logger.Error("chat failed", "session_id", sessionID, "error", cause)
	if !errors.Is(cause, ErrModelProvider) {
		cause = fmt.Errorf("%w: %w", ErrModelProvider, cause)
	}

	now := time.Now()
	reply := domain.Message{
		Role:      domain.RoleAssistant,
		Content:   ProviderFailureReply,
		Timestamp: &now,
	}
	if err := s.store.Append(ctx, sessionID, reply); err != nil {
		return nil, fmt.Errorf("failed to store error reply: %w", err)
	}

	rec.Record(ctx, domain.EventTypeChatFailed, domain.ChatFailedPayload{
		Code:    "model_provider_error",
		Message: cause.Error(),
	})

	messages, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return &ChatResult{Messages: messages}, cause
}

func withLocation(content string, loc *domain.UserLocation) string {
	if loc == nil {
		return content
	}
	return fmt.Sprintf("%s\n\n[User location: latitude=%v, longitude=%v]", content, loc.Latitude, loc.Longitude)
}
