// Package protocol defines the WebSocket message protocol between chat clients and the server.
package protocol

import "github.com/xiaot623/tripchat/internal/domain"

// Message types from client to server
const (
	TypeChat = "chat"
)

// Message types from server to client
const (
	TypeConnected = "connected"
	TypeEvent     = "event"
	TypeDone      = "done"
	TypeError     = "error"
)

// Error codes carried by ErrorMessage.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeEmptyContent   = "empty_content"
	ErrorCodeModelProvider  = "model_provider_error"
	ErrorCodeInternal       = "internal_error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// ConnectedMessage is sent once the socket is bound to a session.
type ConnectedMessage struct {
	BaseMessage
}

// ChatMessage is sent by the client to post a user message.
type ChatMessage struct {
	BaseMessage
	Content      string               `json:"content"`
	UserLocation *domain.UserLocation `json:"user_location,omitempty"`
}

// EventMessage streams one step event of a running chat.
type EventMessage struct {
	BaseMessage
	Event domain.Event `json:"event"`
}

// DoneMessage carries the session transcript after a chat completes.
type DoneMessage struct {
	BaseMessage
	Messages  []domain.Message `json:"messages"`
	Truncated bool             `json:"truncated"`
}

// ErrorMessage reports a failed request. Messages is set when the transcript
// was still updated, as on model provider failures.
type ErrorMessage struct {
	BaseMessage
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Messages []domain.Message `json:"messages,omitempty"`
}
