package pagestate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoEvaluator indicates an evaluator could not be resolved.
var ErrNoEvaluator = errors.New("pagestate: evaluator not configured")

// ExpressionPredicate builds a Predicate from an expression evaluated against
// the driver's page snapshot. The expression sees the snapshot's fields plus
// `params`, `state`, and `now`, and must evaluate to a boolean.
func (m *Machine) ExpressionPredicate(expression string) Predicate {
	return func(ctx context.Context, page PageDriver, params Params) (bool, error) {
		value, err := m.evaluateExpression(ctx, expression, params)
		if err != nil {
			return false, err
		}
		matched, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("pagestate: expression %q evaluated to %T, want bool", expression, value)
		}
		return matched, nil
	}
}

func (m *Machine) evaluateExpression(ctx context.Context, expression string, params Params) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("pagestate: expression must not be empty")
	}
	evaluator, err := m.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	snapshot, err := m.driver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	pctx := PredicateContext{
		Page:   snapshot,
		Params: params,
		State:  m.CurrentState(),
	}
	pctx = pctx.withDefaultNow().withDefaultMaps()

	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(pctx, expression)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expression, pctx.stateLabel(), evalErr)
	m.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		State:    pctx.stateLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (m *Machine) resolveEvaluator() (Evaluator, error) {
	if m.cfg.evaluator != nil {
		return m.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := m.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := m.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	m.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func (m *Machine) evaluatorLogger() EvaluatorLogger {
	if m.cfg.evalLogger != nil {
		return m.cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*pagestate.exprEvaluator":
		return "expr"
	case "*pagestate.celEvaluator":
		return "cel"
	case "*pagestate.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
