package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/tripchat/internal/adapter/chatclient"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/protocol"
)

func frame(typ string) *chatclient.Frame {
	f := &chatclient.Frame{}
	f.Type = typ
	return f
}

func TestAwaitReplyStopsOnDone(t *testing.T) {
	frames := make(chan *chatclient.Frame, 3)
	ev := frame(protocol.TypeEvent)
	ev.Event = &domain.Event{Type: domain.EventTypeToolCallStarted, Payload: []byte(`{"tool_name":"get_weather"}`)}
	frames <- ev
	done := frame(protocol.TypeDone)
	done.Messages = []domain.Message{{Role: domain.RoleAssistant, Content: "Sunny"}}
	frames <- done

	assert.NoError(t, awaitReply(context.Background(), frames, make(chan error)))
	assert.Empty(t, frames)
}

func TestAwaitReplyStopsOnError(t *testing.T) {
	frames := make(chan *chatclient.Frame, 1)
	frames <- frame(protocol.TypeError)
	assert.NoError(t, awaitReply(context.Background(), frames, make(chan error)))
}

func TestAwaitReplyConnectionLost(t *testing.T) {
	readErr := make(chan error, 1)
	readErr <- errors.New("eof")
	err := awaitReply(context.Background(), make(chan *chatclient.Frame), readErr)
	assert.ErrorContains(t, err, "connection closed")
}

func TestAwaitReplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := awaitReply(ctx, make(chan *chatclient.Frame), make(chan error))
	assert.ErrorIs(t, err, context.Canceled)
}
