package pagestate

import "time"

// PredicateContext carries the inputs available to an expression-based
// predicate: a flat snapshot of the live page, the caller's params, the
// machine's cached position, and the evaluation timestamp.
type PredicateContext struct {
	Page   map[string]any
	Params Params
	State  string
	Now    *time.Time
}

func (ctx PredicateContext) withDefaultNow() PredicateContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx PredicateContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx PredicateContext) withDefaultMaps() PredicateContext {
	if ctx.Page == nil {
		ctx.Page = map[string]any{}
	}
	if ctx.Params == nil {
		ctx.Params = Params{}
	}
	return ctx
}

func (ctx PredicateContext) stateLabel() string {
	if ctx.State == "" {
		return UnknownState
	}
	return ctx.State
}

// Evaluator executes expressions against a predicate context.
type Evaluator interface {
	Evaluate(ctx PredicateContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx PredicateContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
