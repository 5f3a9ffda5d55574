package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator resolves a declared expression (populate, default, filter,
// validation) against a request environment.
type Evaluator interface {
	Evaluate(expression string, env map[string]any) (any, error)
}

// ExprEvaluator uses expr-lang/expr. Compiled programs are cached by
// expression string; the cache is shared across concurrent operations.
type ExprEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{cache: make(map[string]*vm.Program)}
}

func (e *ExprEvaluator) Evaluate(expression string, env map[string]any) (any, error) {
	e.mu.RLock()
	prog, ok := e.cache[expression]
	e.mu.RUnlock()

	if !ok {
		var err error
		prog, err = expr.Compile(expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", expression, err)
		}
		e.mu.Lock()
		e.cache[expression] = prog
		e.mu.Unlock()
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// baseEnv builds the environment shared by all expressions of one operation.
func baseEnv(req *Request, values map[string]any, action string) map[string]any {
	return map[string]any{
		"record": values,
		"actor":  req.Actor.Env(),
		"action": action,
		"now":    func() time.Time { return time.Now().UTC() },
	}
}
