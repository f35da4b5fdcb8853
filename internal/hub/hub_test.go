package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/logging"
	"github.com/xiaot623/tripchat/internal/protocol"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "send channel closed")
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubPublishEventReachesSessionOnly(t *testing.T) {
	h := startHub(t)

	a := h.NewConnection(nil, "s1")
	b := h.NewConnection(nil, "s2")
	h.Register(a)
	h.Register(b)

	h.PublishEvent(domain.Event{EventID: "evt_1", SessionID: "s1", Ts: 42, Type: domain.EventTypeToolCallStarted})

	var msg protocol.EventMessage
	require.NoError(t, json.Unmarshal(receive(t, a), &msg))
	assert.Equal(t, protocol.TypeEvent, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "evt_1", msg.Event.EventID)
	assert.Equal(t, domain.EventTypeToolCallStarted, msg.Event.Type)

	select {
	case <-b.Send:
		t.Fatal("connection of another session received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregister(t *testing.T) {
	h := startHub(t)

	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	assert.Eventually(t, func() bool { return h.HasActiveConnections("s1") }, time.Second, 5*time.Millisecond)

	h.Unregister(conn)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, h.HasActiveConnections("s1"))

	_, ok := <-conn.Send
	assert.False(t, ok)
}

func TestHubStopClosesConnections(t *testing.T) {
	h := New(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	cancel()
	<-stopped

	_, ok := <-conn.Send
	assert.False(t, ok)

	// Registration after shutdown must not block.
	h.Register(h.NewConnection(nil, "s2"))
}

func TestSendToConnectionBufferFull(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	require.Eventually(t, func() bool { return h.HasActiveConnections("s1") }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, h.SendToConnection(conn, []byte("x")))
	}
	assert.ErrorIs(t, h.SendToConnection(conn, []byte("x")), ErrBufferFull)
}

func TestSendToUnregisteredConnection(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil, "s1")
	assert.ErrorIs(t, h.SendToConnection(conn, []byte("x")), ErrNotRegistered)

	h.Register(conn)
	h.Unregister(conn)
	require.Eventually(t, func() bool { return h.GetConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.SendToConnection(conn, []byte("x")), ErrNotRegistered)
}
