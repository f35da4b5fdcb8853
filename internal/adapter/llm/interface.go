// Package llm provides an abstraction for chat-completion model providers.
package llm

import "context"

// LLMClient defines the model-provider capability the orchestrator consumes:
// one call-and-response chat completion with optional tool schemas.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
