package pagestate

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures the expr-lang evaluator.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache reuses compiled programs across evaluations.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) { e.cache = cache }
}

// ExprWithFunctionRegistry exposes registry functions to expressions, both
// under their own names and through call("name", args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// exprEvaluator runs page predicates through expr-lang/expr. Page snapshot
// fields are flattened into the expression environment so predicates read
// like `url == "https://shop.example/cart"`.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, ctx, expression)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return &exprRule{owner: e, program: program, expression: expression}, nil
}

// compile consults the cache before building a program. Registry functions
// are declared at compile time so expressions may call them unqualified.
func (e *exprEvaluator) compile(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if program, ok := hit.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	compileOpts := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			fn := name
			compileOpts = append(compileOpts, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, compileOpts...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *exprEvaluator) run(program *exprvm.Program, ctx PredicateContext, expression string) (any, error) {
	ctx = ctx.withDefaultNow().withDefaultMaps()
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.stateLabel(), err)
	}
	return result, nil
}

// environment flattens the page snapshot under the fixed bindings. The fixed
// names win on collision: now, params, state and call are assigned last.
func (e *exprEvaluator) environment(ctx PredicateContext) map[string]any {
	env := make(map[string]any, len(ctx.Page)+4)
	for key, value := range ctx.Page {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["params"] = map[string]any(ctx.Params)
	env["state"] = ctx.stateLabel()
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

type exprRule struct {
	owner      *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx PredicateContext) (any, error) {
	if r.owner == nil || r.program == nil {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("rule was not compiled"))
	}
	return r.owner.run(r.program, ctx, r.expression)
}
