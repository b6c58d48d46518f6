// Package policy evaluates an optional admission expression over the
// attributes produced for a request.
//
// The classifier and extractor never reject a request. Hosts that want to
// turn attributes into an allow/deny decision configure a CEL expression,
// for example:
//
//	attrs["jwt.valid"] == true && hasScope(attrs, "read")
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	readgatecel "github.com/alechenninger/readgate/internal/cel"
)

// Decision is the result of evaluating a policy.
type Decision struct {
	Allowed bool

	// Reason explains a denial. Empty when allowed.
	Reason string

	// Err is set when the expression could not produce a bool. Such a
	// decision is always a denial.
	Err error
}

// Policy decides whether a request may proceed.
type Policy interface {
	Evaluate(ctx context.Context, attrs map[string]any) Decision
}

// AllowAll admits every request.
type AllowAll struct{}

func (AllowAll) Evaluate(context.Context, map[string]any) Decision {
	return Decision{Allowed: true}
}

// CELPolicy is a compiled admission expression.
type CELPolicy struct {
	expression string
	program    cel.Program
}

// New compiles expression. An empty expression yields AllowAll.
func New(expression string) (Policy, error) {
	if strings.TrimSpace(expression) == "" {
		return AllowAll{}, nil
	}
	return Compile(expression)
}

// Compile compiles a CEL expression over the variable attrs, a
// map(string, dyn). The expression must evaluate to a bool.
func Compile(expression string) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
		readgatecel.AttributeHelpersLibrary(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile admission policy: %w", issues.Err())
	}

	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("admission policy must evaluate to bool, got %s", out)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &CELPolicy{expression: expression, program: program}, nil
}

// Expression returns the source expression.
func (p *CELPolicy) Expression() string {
	return p.expression
}

// Evaluate runs the expression. Evaluation errors and non-bool results deny.
func (p *CELPolicy) Evaluate(ctx context.Context, attrs map[string]any) Decision {
	out, _, err := p.program.ContextEval(ctx, map[string]any{
		"attrs": attrs,
	})
	if err != nil {
		return failedDecision(fmt.Errorf("admission policy evaluation failed: %w", err))
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return failedDecision(fmt.Errorf("admission policy returned %s, not bool", out.Type().TypeName()))
	}
	if !allowed {
		return Decision{Reason: "request denied by admission policy"}
	}
	return Decision{Allowed: true}
}

func failedDecision(err error) Decision {
	return Decision{Reason: err.Error(), Err: err}
}
