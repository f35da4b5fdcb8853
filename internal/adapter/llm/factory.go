package llm

import (
	"log/slog"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "TRIPCHAT_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client based on the TRIPCHAT_MODE environment variable.
// If TRIPCHAT_MODE=MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) LLMClient {
	if os.Getenv(EnvMode) == ModeMock {
		logger.Info("TRIPCHAT_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if apiKey == "" {
		logger.Warn("no LLM API key configured; provider calls will likely be rejected")
	}
	return NewClient(baseURL, apiKey, timeout)
}
