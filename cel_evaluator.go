package pagestate

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache reuses compiled programs across evaluations.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) { e.cache = cache }
}

// CELWithFunctionRegistry exposes registry functions to expressions through
// call("name", args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// celEvaluator runs page predicates through cel-go. CEL wants declared
// variables, so the environment is derived from the snapshot shape seen at
// compile time; a cached program assumes later snapshots keep that shape.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celRule{owner: e, expression: expression}, nil
}

// celRule defers compilation to first evaluation because the CEL environment
// depends on the page snapshot's keys.
type celRule struct {
	owner      *celEvaluator
	expression string
}

func (r *celRule) Evaluate(ctx PredicateContext) (any, error) {
	if r.owner == nil {
		return nil, fmt.Errorf("rule was not compiled")
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := r.owner.program(r.expression, ctx.Page)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(r.owner.bindings(ctx))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) program(expression string, page map[string]any) (celgo.Program, error) {
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if program, ok := hit.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.newEnv(page)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *celEvaluator) newEnv(page map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("params", celgo.DynType),
		celgo.Variable("state", celgo.StringType),
	}
	for key := range page {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		// CEL checks call arity, so each shape gets its own overload. Three
		// forwarded arguments cover the registry helpers; widen here if a
		// definition needs more.
		argTypes := []*celgo.Type{celgo.StringType}
		overloads := make([]celgo.FunctionOpt, 0, 4)
		for i := range 4 {
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", i),
				append([]*celgo.Type{}, argTypes...),
				celgo.DynType,
				celgo.FunctionBinding(e.dispatch),
			))
			argTypes = append(argTypes, celgo.DynType)
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) bindings(ctx PredicateContext) map[string]any {
	vars := make(map[string]any, len(ctx.Page)+3)
	for key, value := range ctx.Page {
		vars[key] = value
	}
	vars["now"] = ctx.timestamp()
	vars["params"] = map[string]any(ctx.Params)
	vars["state"] = ctx.stateLabel()
	return vars
}

// dispatch bridges call("name", args...) to the function registry.
func (e *celEvaluator) dispatch(values ...ref.Val) ref.Val {
	if e.registry == nil {
		return types.NewErr("pagestate: function registry not configured")
	}
	if len(values) == 0 {
		return types.NewErr("pagestate: call requires a function name")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("pagestate: call name must be a string")
	}
	args := make([]any, len(values)-1)
	for i, val := range values[1:] {
		args[i] = val.Value()
	}
	out, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if out == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(out)
}
