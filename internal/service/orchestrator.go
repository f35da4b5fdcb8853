package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/tripchat/internal/adapter/llm"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/tools"
)

// ErrModelProvider marks a failed call to the model provider.
var ErrModelProvider = errors.New("model provider error")

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `You are a helpful trip planning assistant for Montreal.
You help users find places, check the weather, plan trips on public transit, BIXI bikes or on foot,
and check STM service alerts. Use the available tools whenever they can answer the question,
and give short, practical answers. Times are in the America/Montreal timezone.`

// LoadSystemPrompt reads the system instruction from path. An empty path
// yields DefaultSystemPrompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// Recorder receives the steps of one chat request.
type Recorder interface {
	Record(ctx context.Context, eventType domain.EventType, payload interface{})
}

// ProcessOption configures a single Process call.
type ProcessOption func(*processOptions)

type processOptions struct {
	recorder Recorder
}

// WithRecorder reports model and tool steps to rec.
func WithRecorder(rec Recorder) ProcessOption {
	return func(o *processOptions) {
		o.recorder = rec
	}
}

// Result is the outcome of one orchestrated turn.
type Result struct {
	FinalText   string
	NewMessages []domain.Message
	Truncated   bool
	Iterations  int
	ModelCalls  int
}

// Orchestrator drives the model / tool loop for one user turn.
type Orchestrator struct {
	llm          llm.LLMClient
	dispatcher   *tools.Dispatcher
	model        string
	systemPrompt string
	logger       *slog.Logger
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(client llm.LLMClient, dispatcher *tools.Dispatcher, model, systemPrompt string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Orchestrator{
		llm:          client,
		dispatcher:   dispatcher,
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logger,
		now:          time.Now,
	}
}

// Tools returns the definitions offered to the model.
func (o *Orchestrator) Tools() []tools.Definition {
	return o.dispatcher.Catalog().Definitions()
}

// Process answers userText given the stored history, which already ends with
// the user's message. At most maxIterations tool rounds run, so the model is
// called at most maxIterations+1 times.
func (o *Orchestrator) Process(ctx context.Context, userText string, history []domain.Message, maxIterations int, opts ...ProcessOption) (*Result, error) {
	var options processOptions
	for _, opt := range opts {
		opt(&options)
	}
	rec := options.recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	if maxIterations < 1 {
		maxIterations = 1
	}

	o.logger.Debug("processing message", "content_length", len(userText), "history", len(history))

	outbound := make([]llm.ChatMessage, 0, len(history)+1)
	outbound = append(outbound, llm.ChatMessage{Role: string(domain.RoleSystem), Content: o.systemPrompt})
	for _, m := range history {
		outbound = append(outbound, toChatMessage(m))
	}

	result := &Result{}
	resp, err := o.complete(ctx, outbound, rec, result)
	if err != nil {
		return nil, err
	}

	for result.Iterations < maxIterations {
		reply := resp.FirstMessage()
		if len(reply.ToolCalls) == 0 {
			break
		}
		result.Iterations++

		assistant := o.stamp(domain.Message{
			Role:      domain.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: toToolCallRequests(reply.ToolCalls),
		})
		outbound = append(outbound, toChatMessage(assistant))
		result.NewMessages = append(result.NewMessages, assistant)

		for _, call := range reply.ToolCalls {
			toolMsg := o.runTool(ctx, call, result.Iterations, rec)
			outbound = append(outbound, toChatMessage(toolMsg))
			result.NewMessages = append(result.NewMessages, toolMsg)
		}

		resp, err = o.complete(ctx, outbound, rec, result)
		if err != nil {
			return nil, err
		}
	}

	last := resp.FirstMessage()
	if len(last.ToolCalls) > 0 {
		result.Truncated = true
		o.logger.Warn("iteration budget exhausted", "max_iterations", maxIterations, "pending_tool_calls", len(last.ToolCalls))
		rec.Record(ctx, domain.EventTypeIterationBudgetExhausted, domain.IterationBudgetPayload{
			MaxIterations:    maxIterations,
			PendingToolCalls: len(last.ToolCalls),
		})
	}

	result.FinalText = last.Content
	result.NewMessages = append(result.NewMessages, o.stamp(domain.Message{
		Role:    domain.RoleAssistant,
		Content: last.Content,
	}))
	return result, nil
}

// complete sends one request to the model provider.
func (o *Orchestrator) complete(ctx context.Context, messages []llm.ChatMessage, rec Recorder, result *Result) (*llm.ChatCompletionResponse, error) {
	requestID := "llm_" + uuid.New().String()[:8]
	startTime := time.Now()
	result.ModelCalls++

	rec.Record(ctx, domain.EventTypeLLMCallStarted, domain.LLMCallStartedPayload{
		RequestID: requestID,
		Model:     o.model,
		Messages:  len(messages),
	})

	resp, err := o.llm.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:      o.model,
		Messages:   messages,
		Tools:      o.dispatcher.Catalog().Schemas(),
		ToolChoice: "auto",
	})
	latencyMs := time.Since(startTime).Milliseconds()
	if err != nil {
		o.logger.Error("model call failed", "request_id", requestID, "error", err)
		rec.Record(ctx, domain.EventTypeLLMCallDone, domain.LLMCallDonePayload{
			RequestID: requestID,
			Model:     o.model,
			LatencyMs: latencyMs,
			Error:     err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrModelProvider, err)
	}

	payload := domain.LLMCallDonePayload{
		RequestID: requestID,
		Model:     o.model,
		LatencyMs: latencyMs,
		ToolCalls: len(resp.FirstMessage().ToolCalls),
	}
	if resp.Model != "" {
		payload.Model = resp.Model
	}
	if resp.Usage != nil {
		payload.PromptTokens = resp.Usage.PromptTokens
		payload.CompletionTokens = resp.Usage.CompletionTokens
		payload.TotalTokens = resp.Usage.TotalTokens
	}
	rec.Record(ctx, domain.EventTypeLLMCallDone, payload)
	return resp, nil
}

// runTool dispatches one call and wraps its payload as a tool message.
func (o *Orchestrator) runTool(ctx context.Context, call llm.ToolCall, iteration int, rec Recorder) domain.Message {
	name := call.Function.Name
	args := o.decodeArgs(name, call.Function.Arguments)

	rec.Record(ctx, domain.EventTypeToolCallStarted, domain.ToolCallStartedPayload{
		ToolCallID: call.ID,
		ToolName:   name,
		Args:       rawArgs(call.Function.Arguments),
		Iteration:  iteration,
	})

	startTime := time.Now()
	res := o.dispatcher.Execute(ctx, name, args)
	done := domain.ToolCallDonePayload{
		ToolCallID: call.ID,
		ToolName:   name,
		LatencyMs:  time.Since(startTime).Milliseconds(),
	}
	if res.Failed() {
		done.FailureKind = string(res.Failure.Kind)
		done.Error = res.Failure.Message
	}
	rec.Record(ctx, domain.EventTypeToolCallDone, done)

	content, err := json.Marshal(res.Payload())
	if err != nil {
		o.logger.Warn("failed to encode tool result", "tool", name, "error", err)
		content, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("Error executing %s: %v", name, err)})
	}

	return o.stamp(domain.Message{
		Role:       domain.RoleTool,
		Content:    string(content),
		ToolName:   name,
		ToolCallID: call.ID,
	})
}

func (o *Orchestrator) decodeArgs(name, raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		o.logger.Warn("failed to decode tool arguments", "tool", name, "arguments", raw, "error", err)
		return map[string]any{}
	}
	return args
}

func (o *Orchestrator) stamp(m domain.Message) domain.Message {
	ts := o.now()
	m.Timestamp = &ts
	return m
}

// rawArgs keeps arguments for the event payload only when they are valid JSON.
func rawArgs(raw string) json.RawMessage {
	if raw == "" || !json.Valid([]byte(raw)) {
		return nil
	}
	return json.RawMessage(raw)
}

func toChatMessage(m domain.Message) llm.ChatMessage {
	out := llm.ChatMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if m.Role == domain.RoleTool {
		out.Name = m.ToolName
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

func toToolCallRequests(calls []llm.ToolCall) []domain.ToolCallRequest {
	out := make([]domain.ToolCallRequest, 0, len(calls))
	for _, c := range calls {
		out = append(out, domain.ToolCallRequest{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, domain.EventType, interface{}) {}
