// Package expression hosts the injected predicate evaluator. The core
// treats expressions as opaque strings; this package is the only place
// that knows they are Tengo source.
package expression

import (
	"fmt"

	"github.com/d5/tengo/v2"

	"go-pubflow/internal/features/condition"
)

const resultVar = "__result__"

// EvaluationError marks a predicate that could not be evaluated against
// the given context. Callers treat it as "condition not met" (fail-closed)
// and surface it as an author diagnostic.
type EvaluationError struct {
	Expression string
	Reason     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expression, e.Reason)
}

func (e *EvaluationError) Unwrap() error { return e.Reason }

// TengoEvaluator evaluates boolean predicate expressions with the Tengo
// script engine. Evaluation is pure: scripts get a copy of the runtime
// context as variables and no module imports, so they cannot perform I/O.
type TengoEvaluator struct{}

func NewTengoEvaluator() condition.Evaluator {
	return &TengoEvaluator{}
}

func (e *TengoEvaluator) Eval(expr string, env map[string]interface{}) (bool, error) {
	if expr == "" {
		return false, &EvaluationError{Expression: expr, Reason: fmt.Errorf("empty expression")}
	}

	script := tengo.NewScript([]byte(resultVar + " := (" + expr + ")"))
	for key, value := range env {
		if err := script.Add(key, value); err != nil {
			return false, &EvaluationError{Expression: expr, Reason: fmt.Errorf("bind %s: %w", key, err)}
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return false, &EvaluationError{Expression: expr, Reason: fmt.Errorf("compile: %w", err)}
	}

	if err := compiled.Run(); err != nil {
		return false, &EvaluationError{Expression: expr, Reason: fmt.Errorf("run: %w", err)}
	}

	result := compiled.Get(resultVar).Value()
	b, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{Expression: expr, Reason: fmt.Errorf("result is %T, want bool", result)}
	}
	return b, nil
}
