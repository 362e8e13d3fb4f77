package pagestate

import "context"

// Params is an opaque, caller-defined bag threaded unchanged through
// predicates, transition logic, and continuations. The machine never inspects
// or mutates its contents.
type Params map[string]any

// PageDriver executes side-effecting actions against a live page and answers
// queries about its content. Implementations own their timeout semantics;
// every call should honour ctx cancellation. Driver errors propagate through
// the machine unmodified.
type PageDriver interface {
	// Navigate loads url in the driven page.
	Navigate(ctx context.Context, url string) error
	// Click dispatches a click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// SendKeys types value into the first element matching selector.
	SendKeys(ctx context.Context, selector, value string) error
	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Exists reports whether at least one element matches selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// Snapshot captures a flat view of the page (url, title, and any
	// driver-specific fields) for expression-based predicates.
	Snapshot(ctx context.Context) (map[string]any, error)
}

// Predicate tests whether the live page satisfies a state or layer condition.
type Predicate func(ctx context.Context, page PageDriver, params Params) (bool, error)

// TransitionFunc performs the side effects that move the page along one edge.
// It may navigate, click, submit forms, or do nothing that the machine can
// observe; the machine re-resolves state afterwards regardless.
type TransitionFunc func(ctx context.Context, page PageDriver, params Params) error

// Continuation runs once the requested state is confirmed reached.
type Continuation func(ctx context.Context, page PageDriver, params Params) error

// EitherContinuation runs once one of several candidate states is reached,
// receiving the name of the state that won.
type EitherContinuation func(ctx context.Context, page PageDriver, params Params, state string) error
