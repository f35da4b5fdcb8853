package chatclient

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/tripchat/internal/adapter/llm"
	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/hub"
	"github.com/xiaot623/tripchat/internal/logging"
	"github.com/xiaot623/tripchat/internal/protocol"
	"github.com/xiaot623/tripchat/internal/repository"
	"github.com/xiaot623/tripchat/internal/service"
	"github.com/xiaot623/tripchat/internal/tools"
	handler "github.com/xiaot623/tripchat/internal/transport/http"
	"github.com/xiaot623/tripchat/internal/transport/ws"
)

// startStack runs the full server with the mock model and a datetime tool.
func startStack(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		MaxChatIterations: 3,
		PingInterval:      time.Second,
		WriteTimeout:      time.Second,
		ReadTimeout:       5 * time.Second,
		MaxMessageSize:    65536,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	catalog := tools.MustCatalog(tools.NewDatetimeTool(nil))
	dispatcher := tools.NewDispatcher(catalog, nil, time.Second, logging.Discard())
	orch := service.NewOrchestrator(llm.NewMockClient(), dispatcher, "mock-model", "", logging.Discard())

	h := hub.New(logging.Discard())
	go h.Run(ctx)

	svc := service.New(repository.NewMemoryStore(), orch, h, cfg, logging.Discard())
	e := handler.NewServer(svc, ws.NewServer(cfg, h, svc, logging.Discard()))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHealthAndNewSession(t *testing.T) {
	c := NewClient(startStack(t), time.Second)
	ctx := context.Background()

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	id, err := c.NewSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestChatOverSocket(t *testing.T) {
	c := NewClient(startStack(t)+"/", time.Second)
	require.NoError(t, c.Connect(context.Background(), "s1"))
	defer c.Close()
	assert.Equal(t, "s1", c.SessionID())

	require.NoError(t, c.Send("what time is it?", &domain.UserLocation{Latitude: 45.5, Longitude: -73.6}))

	var events []domain.EventType
	var done *Frame
	for done == nil {
		frame, err := c.Next()
		require.NoError(t, err)
		switch frame.Type {
		case protocol.TypeEvent:
			require.NotNil(t, frame.Event)
			events = append(events, frame.Event.Type)
		case protocol.TypeDone:
			done = frame
		default:
			t.Fatalf("unexpected frame %s", frame.Type)
		}
	}

	require.Len(t, done.Messages, 4)
	assert.Contains(t, done.Messages[0].Content, "[User location: latitude=45.5, longitude=-73.6]")
	assert.Equal(t, "get_current_datetime", done.Messages[2].ToolName)

	// step events travel through the hub and may trail the reply
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !containsType(events, domain.EventTypeChatDone) {
		frame, err := c.Next()
		require.NoError(t, err)
		if frame.Type == protocol.TypeEvent {
			events = append(events, frame.Event.Type)
		}
	}
	assert.Equal(t, domain.EventTypeChatStarted, events[0])
	assert.Contains(t, events, domain.EventTypeToolCallDone)
}

func containsType(events []domain.EventType, want domain.EventType) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

func TestConnectCreatesSession(t *testing.T) {
	c := NewClient(startStack(t), time.Second)
	require.NoError(t, c.Connect(context.Background(), ""))
	defer c.Close()
	assert.Len(t, c.SessionID(), 36)
}

func TestSendWithoutConnect(t *testing.T) {
	c := NewClient("http://localhost:1", time.Second)
	assert.Error(t, c.Send("hi", nil))
	_, err := c.Next()
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
