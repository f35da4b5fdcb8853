// Package domain defines the core domain models for the trip assistant.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// EventType represents the type of a step event.
type EventType string

const (
	EventTypeChatStarted EventType = "chat_started"
	EventTypeChatDone    EventType = "chat_done"
	EventTypeChatFailed  EventType = "chat_failed"

	// LLM call events
	EventTypeLLMCallStarted EventType = "llm_call_started"
	EventTypeLLMCallDone    EventType = "llm_call_done"

	// Tool events
	EventTypeToolCallStarted EventType = "tool_call_started"
	EventTypeToolCallDone    EventType = "tool_call_done"

	EventTypeIterationBudgetExhausted EventType = "iteration_budget_exhausted"
)
