// pkg/validate/cel.go
package validate

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// exprEvaluator compiles and runs CEL rule expressions. Compiled
// programs are cached by expression text so re-validation reuses them.
type exprEvaluator struct {
	env      *cel.Env
	prgCache map[string]cel.Program
	mu       sync.RWMutex
}

func newExprEvaluator() (*exprEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("record", cel.DynType),
		cel.Variable("index", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &exprEvaluator{
		env:      env,
		prgCache: make(map[string]cel.Program),
	}, nil
}

func (e *exprEvaluator) getProgram(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.prgCache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.prgCache[expr]; ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", iss.Err())
	}

	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	e.prgCache[expr] = prg
	return prg, nil
}

// checkExpr evaluates a CEL expression once per record. An expression
// that errors or yields a non-bool for a record counts that record as
// a violation rather than aborting the run.
func (e *exprEvaluator) checkExpr(t *model.Table, field, expr string) ([]int, error) {
	prg, err := e.getProgram(expr)
	if err != nil {
		return nil, err
	}

	var violations []int
	for i, rec := range t.Records {
		input := map[string]interface{}{
			"value":  rec[field],
			"record": map[string]interface{}(rec),
			"index":  i,
		}

		out, _, err := prg.Eval(input)
		if err != nil {
			violations = append(violations, i)
			continue
		}

		passed, ok := out.Value().(bool)
		if !ok || !passed {
			violations = append(violations, i)
		}
	}

	return violations, nil
}
