//go:build js_eval

package pagestate

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs page predicates through goja. Each evaluation uses a
// fresh runtime seeded with the snapshot fields, so expressions cannot leak
// state between pages.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache, registry: cfg.registry}
}

func (e *jsEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return &jsRule{owner: e, program: program}, nil
}

func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if program, ok := hit.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	// Wrapped in an IIFE so bare expressions stay expressions.
	source := fmt.Sprintf("(function(){ return (%s); })()", expression)
	program, err := goja.Compile("", source, false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) runtime(ctx PredicateContext) *goja.Runtime {
	vm := goja.New()
	for key, value := range ctx.Page {
		vm.Set(key, value)
	}
	vm.Set("now", ctx.timestamp())
	vm.Set("params", map[string]any(ctx.Params))
	vm.Set("state", ctx.stateLabel())
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
	}
	return vm
}

type jsRule struct {
	owner   *jsEvaluator
	program *goja.Program
}

func (r *jsRule) Evaluate(ctx PredicateContext) (any, error) {
	if r.owner == nil || r.program == nil {
		return nil, fmt.Errorf("rule was not compiled")
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	value, err := r.owner.runtime(ctx).RunProgram(r.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
