package pagestate

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError carries the engine, expression, and machine state a
// predicate evaluation failed under.
type EvaluationError struct {
	Engine string
	Expr   string
	State  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("pagestate: %s evaluator %s state=%s: %v", e.Engine, expr, e.State, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluationError attaches evaluation metadata to err. An existing
// EvaluationError is augmented in place, filling only the fields it lacks.
func wrapEvaluationError(engine, expr, state string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, State: state, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.State == "" {
		evalErr.State = state
	}
	return evalErr
}

// wrapEvaluatorError prefixes setup errors that do not yet carry the package
// prefix. Errors already marked, including EvaluationError, pass through.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "pagestate:") {
		return err
	}
	return fmt.Errorf("pagestate: %s evaluator: %w", engine, err)
}
