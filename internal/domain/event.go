package domain

import "encoding/json"

// Event is a recorded step of a chat request, kept for replay and streamed to subscribers.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChatStartedPayload is the payload for chat_started.
type ChatStartedPayload struct {
	ContentLength int  `json:"content_length"`
	HistoryLength int  `json:"history_length"`
	HasLocation   bool `json:"has_location"`
}

// LLMCallStartedPayload is the payload for llm_call_started.
type LLMCallStartedPayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Messages  int    `json:"messages"`
}

// LLMCallDonePayload is the payload for llm_call_done.
type LLMCallDonePayload struct {
	RequestID        string `json:"request_id"`
	Model            string `json:"model"`
	LatencyMs        int64  `json:"latency_ms"`
	ToolCalls        int    `json:"tool_calls"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ToolCallStartedPayload is the payload for tool_call_started.
type ToolCallStartedPayload struct {
	ToolCallID string          `json:"tool_call_id"`
	ToolName   string          `json:"tool_name"`
	Args       json.RawMessage `json:"args,omitempty"`
	Iteration  int             `json:"iteration"`
}

// ToolCallDonePayload is the payload for tool_call_done.
type ToolCallDonePayload struct {
	ToolCallID  string `json:"tool_call_id"`
	ToolName    string `json:"tool_name"`
	LatencyMs   int64  `json:"latency_ms"`
	FailureKind string `json:"failure_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// IterationBudgetPayload is the payload for iteration_budget_exhausted.
type IterationBudgetPayload struct {
	MaxIterations    int `json:"max_iterations"`
	PendingToolCalls int `json:"pending_tool_calls"`
}

// ChatDonePayload is the payload for chat_done.
type ChatDonePayload struct {
	Iterations  int  `json:"iterations"`
	ModelCalls  int  `json:"model_calls"`
	NewMessages int  `json:"new_messages"`
	Truncated   bool `json:"truncated"`
}

// ChatFailedPayload is the payload for chat_failed.
type ChatFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
