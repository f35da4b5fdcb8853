package domain

import "time"

// ToolCallRequest is a model-issued request to invoke a named tool.
// Arguments is the raw text the model produced; it is expected to be a JSON object.
type ToolCallRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a conversation.
//
// Tool-role messages always carry ToolCallID. Assistant messages that request
// tools carry ToolCalls and may have empty Content.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolName   string            `json:"name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCallRequest(nil), m.ToolCalls...)
	}
	if m.Timestamp != nil {
		ts := *m.Timestamp
		out.Timestamp = &ts
	}
	return out
}

// CloneMessages deep-copies a message slice. A nil input yields an empty slice.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

// UserLocation is the user's position as captured by the client device.
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
