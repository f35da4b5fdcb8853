package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateChatCompletion(t *testing.T) {
	var gotAuth string
	var gotReq ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"mistral-small-latest","choices":[{"index":0,"message":{"role":"assistant","content":"","tool_calls":[{"id":"call1","type":"function","function":{"name":"get_weather","arguments":"{\"latitude\":45.5,\"longitude\":-73.6}"}}]},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "mistral-small-latest",
		Messages: []ChatMessage{{Role: "user", Content: "weather?"}},
		Tools: []Tool{{
			Type:     "function",
			Function: ToolFunction{Name: "get_weather", Parameters: map[string]any{"type": "object"}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "get_weather", gotReq.Tools[0].Function.Name)

	msg := resp.FirstMessage()
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call1", msg.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"latitude":45.5,"longitude":-73.6}`, msg.ToolCalls[0].Function.Arguments)
	assert.Equal(t, 3, resp.Usage.TotalTokens)
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM API error [401]: bad key")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
}

func TestParseAPIError(t *testing.T) {
	cases := []struct {
		name string
		body string
		want APIError
	}{
		{"nested", `{"error":{"message":"bad key","type":"auth"}}`, APIError{StatusCode: 429, Message: "bad key", Type: "auth"}},
		{"flat", `{"object":"error","message":"rate limited","type":"rate_limit","code":"1300"}`, APIError{StatusCode: 429, Message: "rate limited", Type: "rate_limit", Code: "1300"}},
		{"plain text", "upstream timeout\n", APIError{StatusCode: 429, Message: "upstream timeout"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, *parseAPIError(429, []byte(tc.body)))
		})
	}
	assert.Equal(t, "LLM API error [429]: upstream timeout", parseAPIError(429, []byte("upstream timeout")).Error())
}

func TestFirstMessageEmpty(t *testing.T) {
	var resp *ChatCompletionResponse
	assert.Equal(t, "assistant", resp.FirstMessage().Role)
	assert.Equal(t, "assistant", (&ChatCompletionResponse{}).FirstMessage().Role)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	tools := []Tool{{Type: "function", Function: ToolFunction{Name: "get_current_datetime"}}}

	t.Run("requests datetime tool", func(t *testing.T) {
		resp, err := m.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
			Messages: []ChatMessage{{Role: "user", Content: "What time is it?"}},
			Tools:    tools,
		})
		require.NoError(t, err)
		msg := resp.FirstMessage()
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, "get_current_datetime", msg.ToolCalls[0].Function.Name)
		assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	})

	t.Run("summarizes tool result", func(t *testing.T) {
		resp, err := m.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
			Messages: []ChatMessage{
				{Role: "user", Content: "What time is it?"},
				{Role: "tool", Name: "get_current_datetime", Content: `{"success":true}`, ToolCallID: "c"},
			},
			Tools: tools,
		})
		require.NoError(t, err)
		assert.Equal(t, `[MOCK] Tool get_current_datetime returned: {"success":true}`, resp.FirstMessage().Content)
	})

	t.Run("echoes otherwise", func(t *testing.T) {
		resp, err := m.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
			Messages: []ChatMessage{{Role: "user", Content: "hello"}},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.FirstMessage().ToolCalls)
		assert.Contains(t, resp.FirstMessage().Content, `"hello"`)
	})
}
