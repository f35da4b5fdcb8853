package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/tripchat/internal/adapter/llm"
	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/logging"
	"github.com/xiaot623/tripchat/internal/repository"
	"github.com/xiaot623/tripchat/tests/helpers"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) PublishEvent(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func newTestService(t *testing.T, client llm.LLMClient, maxIterations int) (*Service, *repository.MemoryStore, *capturePublisher) {
	t.Helper()
	store := repository.NewMemoryStore()
	pub := &capturePublisher{}
	cfg := &config.Config{MaxChatIterations: maxIterations}
	return New(store, newTestOrchestrator(t, client), pub, cfg, logging.Discard()), store, pub
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestPostChat(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		if n == 0 {
			return toolReply("", call("c1", "echo", `{"query":"hi"}`)), nil
		}
		return textReply("Done"), nil
	}}
	svc, store, pub := newTestService(t, client, 5)
	ctx := context.Background()

	res, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "hello"})
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, domain.RoleUser, res.Messages[0].Role)
	assert.Equal(t, "hello", res.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, res.Messages[1].Role)
	assert.Equal(t, domain.RoleTool, res.Messages[2].Role)
	assert.Equal(t, "Done", res.Messages[3].Content)

	stored, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, res.Messages, stored)

	events, err := svc.ListEvents(ctx, "s1", 0, 0)
	require.NoError(t, err)
	want := []domain.EventType{
		domain.EventTypeChatStarted,
		domain.EventTypeLLMCallStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeToolCallStarted,
		domain.EventTypeToolCallDone,
		domain.EventTypeLLMCallStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeChatDone,
	}
	assert.Equal(t, want, eventTypes(events))
	assert.Equal(t, want, eventTypes(pub.events))
	for _, e := range events {
		assert.Equal(t, "s1", e.SessionID)
		assert.Regexp(t, `^evt_[0-9a-f]{8}$`, e.EventID)
	}
}

func TestPostChatHistoryAcrossTurns(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		return textReply("reply"), nil
	}}
	svc, _, _ := newTestService(t, client, 5)
	ctx := context.Background()

	_, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "one"})
	require.NoError(t, err)
	res, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "two"})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 4)

	// system + user + assistant + user
	sent := client.requests[1].Messages
	require.Len(t, sent, 4)
	assert.Equal(t, "one", sent[1].Content)
	assert.Equal(t, "reply", sent[2].Content)
	assert.Equal(t, "two", sent[3].Content)
}

func TestPostChatUserLocation(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		return textReply("ok"), nil
	}}
	svc, _, _ := newTestService(t, client, 5)

	res, err := svc.PostChat(context.Background(), domain.ChatRequest{
		SessionID:    "s1",
		Content:      "where am I",
		UserLocation: &domain.UserLocation{Latitude: 45.5, Longitude: -73.56},
	})
	require.NoError(t, err)
	assert.Equal(t, "where am I\n\n[User location: latitude=45.5, longitude=-73.56]", res.Messages[0].Content)
}

func TestPostChatValidation(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		return textReply("ok"), nil
	}}
	svc, _, _ := newTestService(t, client, 5)
	ctx := context.Background()

	_, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.PostChat(ctx, domain.ChatRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrSessionRequired)

	assert.Equal(t, 0, client.calls())
}

func TestPostChatTruncated(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		return toolReply("partial", call("c", "echo", `{}`)), nil
	}}
	svc, _, _ := newTestService(t, client, 2)

	res, err := svc.PostChat(context.Background(), domain.ChatRequest{SessionID: "s1", Content: "loop"})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, "partial", res.Messages[len(res.Messages)-1].Content)

	events, err := svc.ListEvents(context.Background(), "s1", 0, 0)
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), domain.EventTypeIterationBudgetExhausted)
}

func TestPostChatProviderFailure(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		if n == 0 {
			return toolReply("", call("c", "echo", `{}`)), nil
		}
		return nil, errors.New("503 from provider")
	}}
	svc, _, _ := newTestService(t, client, 5)

	res, err := svc.PostChat(context.Background(), domain.ChatRequest{SessionID: "s1", Content: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelProvider)
	require.NotNil(t, res)

	// partial tool messages are not kept
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "hi", res.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, res.Messages[1].Role)
	assert.Equal(t, ProviderFailureReply, res.Messages[1].Content)

	events, err := svc.ListEvents(context.Background(), "s1", 0, 0)
	require.NoError(t, err)
	types := eventTypes(events)
	assert.Equal(t, domain.EventTypeChatFailed, types[len(types)-1])
	assert.NotContains(t, types, domain.EventTypeChatDone)
}

func TestPostChatCancelledStoresNoReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		cancel()
		return nil, context.Canceled
	}}
	svc, store, _ := newTestService(t, client, 5)

	res, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrModelProvider)
	assert.Nil(t, res)

	stored, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.RoleUser, stored[0].Role)

	events, err := svc.ListEvents(context.Background(), "s1", 0, 0)
	require.NoError(t, err)
	assert.NotContains(t, eventTypes(events), domain.EventTypeChatFailed)
}

func TestPostChatSerializesSession(t *testing.T) {
	var inFlight, peak int32
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return textReply("ok"), nil
	}}
	svc, store, _ := newTestService(t, client, 5)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PostChat(context.Background(), domain.ChatRequest{SessionID: "same", Content: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	messages, err := store.Get(context.Background(), "same")
	require.NoError(t, err)
	require.Len(t, messages, 10)
	for i, m := range messages {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role)
		}
	}
	assert.Equal(t, 0, svc.locks.size())
}

func TestSessionLifecycle(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		return textReply("ok"), nil
	}}
	svc, store, _ := newTestService(t, client, 5)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	exists, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	messages, err := svc.GetMessages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, messages)

	deleted, err := svc.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.GetMessages(ctx, "")
	assert.ErrorIs(t, err, ErrSessionRequired)

	require.Len(t, svc.Tools(), 1)
	assert.Equal(t, "echo", svc.Tools()[0].Name)
}

func TestPostChatSQLiteStore(t *testing.T) {
	client := &scriptedLLM{reply: func(n int) (*llm.ChatCompletionResponse, error) {
		if n == 0 {
			return toolReply("checking", call("c1", "echo", `{"query":"metro"}`)), nil
		}
		return textReply("The metro is running"), nil
	}}
	store := helpers.NewTestSQLiteStore(t)
	svc := New(store, newTestOrchestrator(t, client), nil, &config.Config{MaxChatIterations: 5}, logging.Discard())
	ctx := context.Background()

	_, err := svc.PostChat(ctx, domain.ChatRequest{SessionID: "s1", Content: "metro?"})
	require.NoError(t, err)

	messages, err := svc.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "checking", messages[1].Content)
	assert.Equal(t, []domain.ToolCallRequest{{ID: "c1", Name: "echo", Arguments: `{"query":"metro"}`}}, messages[1].ToolCalls)
	assert.Equal(t, "echo", messages[2].ToolName)
	assert.Equal(t, "c1", messages[2].ToolCallID)
	assert.Equal(t, "The metro is running", messages[3].Content)

	events, err := svc.ListEvents(ctx, "s1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeChatStarted, events[0].Type)
	assert.Equal(t, domain.EventTypeChatDone, events[len(events)-1].Type)
}
