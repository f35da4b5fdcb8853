package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiaot623/tripchat/policy"
)

// FailureKind classifies a failed tool call.
type FailureKind string

const (
	FailureUnknownTool    FailureKind = "unknown_tool"
	FailureExecutionError FailureKind = "execution_error"
	FailureBlocked        FailureKind = "blocked"
)

// Failure describes why a tool call produced no value.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the outcome of one tool call: a value or a failure, never both.
type Result struct {
	Value   any
	Failure *Failure
}

// Failed reports whether the call failed.
func (r Result) Failed() bool {
	return r.Failure != nil
}

// Payload returns what the model sees for this result.
func (r Result) Payload() any {
	if r.Failure != nil {
		return map[string]string{"error": r.Failure.Message}
	}
	return r.Value
}

// Guard decides whether a tool call may run.
type Guard interface {
	Check(ctx context.Context, toolName string, args map[string]any) (policy.Decision, error)
}

// Dispatcher runs tool calls against a catalog. It never returns Go errors;
// every failure becomes a Result.
type Dispatcher struct {
	catalog *Catalog
	guard   Guard
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. guard may be nil; a zero timeout
// disables the per-call deadline.
func NewDispatcher(catalog *Catalog, guard Guard, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{catalog: catalog, guard: guard, timeout: timeout, logger: logger}
}

// Catalog returns the dispatcher's catalog.
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// Execute looks up, validates, authorizes and runs one tool call.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) Result {
	tool, ok := d.catalog.Lookup(name)
	if !ok {
		d.logger.Warn("unknown tool requested", "tool", name)
		return failure(FailureUnknownTool, fmt.Sprintf("Unknown tool: %s", name))
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := tool.Definition().Parameters.Validate(args); err != nil {
		return d.executionError(name, err)
	}

	if d.guard != nil {
		decision, err := d.guard.Check(ctx, name, args)
		if err != nil {
			return d.executionError(name, err)
		}
		if !decision.Allowed() {
			reason := decision.Reason
			if reason == "" {
				reason = decision.Decision
			}
			d.logger.Warn("tool blocked by policy", "tool", name, "reason", reason)
			return failure(FailureBlocked, fmt.Sprintf("Tool %s blocked by policy: %s", name, reason))
		}
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	value, err := d.call(callCtx, tool, Args(args))
	if err != nil {
		return d.executionError(name, err)
	}
	return Result{Value: value}
}

type callOutcome struct {
	value any
	err   error
}

// call runs the tool in its own goroutine so a tool that ignores its context
// still cannot outlive the deadline.
func (d *Dispatcher) call(ctx context.Context, tool Tool, args Args) (any, error) {
	done := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := tool.Call(ctx, args)
		done <- callOutcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool call timed out: %w", ctx.Err())
	}
}

func (d *Dispatcher) executionError(name string, err error) Result {
	d.logger.Error("tool execution failed", "tool", name, "error", err)
	return failure(FailureExecutionError, fmt.Sprintf("Error executing %s: %s", name, err.Error()))
}

func failure(kind FailureKind, msg string) Result {
	return Result{Failure: &Failure{Kind: kind, Message: msg}}
}
