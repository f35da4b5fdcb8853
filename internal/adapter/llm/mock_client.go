package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a deterministic LLMClient for local runs without a provider.
//
// When the latest user message mentions the time and the get_current_datetime
// tool is offered, it requests that tool once; when the latest message is a
// tool result it summarizes it; otherwise it echoes the user.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	message := m.generateMockMessage(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &message,
				FinishReason: finishReason(message),
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(message.Content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(message.Content)/4,
		},
	}, nil
}

func (m *MockClient) generateMockMessage(req *ChatCompletionRequest) ChatMessage {
	if len(req.Messages) == 0 {
		return ChatMessage{Role: "assistant", Content: "[MOCK] This is a mock response from the LLM client."}
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role == "tool" {
		return ChatMessage{
			Role:    "assistant",
			Content: fmt.Sprintf("[MOCK] Tool %s returned: %s", last.Name, truncate(last.Content, 200)),
		}
	}

	if last.Role == "user" && offersTool(req.Tools, "get_current_datetime") && strings.Contains(strings.ToLower(last.Content), "time") {
		return ChatMessage{
			Role: "assistant",
			ToolCalls: []ToolCall{
				{
					ID:   fmt.Sprintf("mockcall%d", len(req.Messages)),
					Type: "function",
					Function: ToolCallFunction{
						Name:      "get_current_datetime",
						Arguments: "{}",
					},
				},
			},
		}
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return ChatMessage{Role: "assistant", Content: "[MOCK] This is a mock response from the LLM client."}
	}
	return ChatMessage{
		Role:    "assistant",
		Content: fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100)),
	}
}

func offersTool(tools []Tool, name string) bool {
	for _, t := range tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}

func finishReason(msg ChatMessage) string {
	if len(msg.ToolCalls) > 0 {
		return "tool_calls"
	}
	return "stop"
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
