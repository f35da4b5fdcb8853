package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values understood by the dispatcher.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Decision is the outcome of evaluating the tool policy for one call.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the call may proceed.
func (d Decision) Allowed() bool {
	return d.Decision == DecisionAllow
}

// Engine is the OPA policy engine.
type Engine struct {
	query         rego.PreparedEvalQuery
	disabledTools []string
}

// NewEngine creates a new policy engine with the given policy content.
// disabledTools is passed to every evaluation as input.disabled_tools.
func NewEngine(ctx context.Context, policyContent string, disabledTools []string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	if disabledTools == nil {
		disabledTools = []string{}
	}
	return &Engine{query: query, disabledTools: disabledTools}, nil
}

// NewEngineFromFile loads the policy module from path, or uses DefaultPolicy
// when path is empty.
func NewEngineFromFile(ctx context.Context, path string, disabledTools []string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy, disabledTools)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content), disabledTools)
}

// Check evaluates the policy for a tool call.
func (e *Engine) Check(ctx context.Context, toolName string, args map[string]any) (Decision, error) {
	if args == nil {
		args = map[string]any{}
	}
	return e.Evaluate(ctx, map[string]interface{}{
		"tool_name":      toolName,
		"args":           args,
		"disabled_tools": e.disabledTools,
	})
}

// Evaluate checks the tool policy against a raw input document.
// The policy may produce a string decision or an object {decision, reason}.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Decision: val}, nil
	case map[string]interface{}:
		d, _ := val["decision"].(string)
		if d == "" {
			return Decision{}, fmt.Errorf("policy result has no decision")
		}
		reason, _ := val["reason"].(string)
		return Decision{Decision: d, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy result type %T", val)
	}
}

// DefaultPolicy allows every tool except those listed in input.disabled_tools.
const DefaultPolicy = `
package tool_policy

import rego.v1

default decision = {"decision": "allow"}

decision = {"decision": "block", "reason": sprintf("tool %s is disabled", [input.tool_name])} if {
	input.tool_name in input.disabled_tools
}
`
