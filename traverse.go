package pagestate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-pagestate/pkg/journal"
)

// EnsureOption configures a single navigation request.
type EnsureOption func(*ensureConfig)

type ensureConfig struct {
	retries int
}

// WithEnsureRetries overrides the per-edge retry budget for one request.
func WithEnsureRetries(retries int) EnsureOption {
	return func(cfg *ensureConfig) {
		if retries > 0 {
			cfg.retries = retries
		}
	}
}

func (m *Machine) applyEnsureOptions(opts []EnsureOption) ensureConfig {
	cfg := ensureConfig{retries: m.cfg.retries}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Traverse executes a computed path edge by edge. Each edge is attempted up
// to the configured retry budget: the transition logic runs, the current
// state is re-resolved, and the attempt succeeds only when the resolved state
// matches the edge's declared end. Landing in an unexpected state updates the
// cached current state before the retry; the same edge is re-attempted rather
// than recomputing a fresh route from the unexpected position. An edge that
// exhausts its retries aborts the remainder of the path with a
// TraversalError.
func (m *Machine) Traverse(ctx context.Context, path Path, params Params, opts ...EnsureOption) error {
	cfg := m.applyEnsureOptions(opts)
	return m.traverse(ctx, path, params, cfg.retries, uuid.NewString())
}

func (m *Machine) traverse(ctx context.Context, path Path, params Params, retries int, runID string) error {
	for _, step := range path {
		if err := m.traverseStep(ctx, step, params, retries, runID); err != nil {
			return err
		}
	}
	m.emit(ctx, journal.Event{
		Verb:  journal.VerbPathCompleted,
		RunID: runID,
		State: m.CurrentState(),
		Metadata: map[string]any{
			"steps": len(path),
		},
	})
	return nil
}

func (m *Machine) traverseStep(ctx context.Context, step Step, params Params, retries int, runID string) error {
	expectedBase := step.To.Base()
	var lastErr error

	for attempt := 1; attempt <= retries; attempt++ {
		pre := m.CurrentState()
		start := time.Now()
		m.emit(ctx, journal.Event{
			Verb:    journal.VerbTransitionAttempted,
			RunID:   runID,
			From:    step.From.Key(),
			To:      step.To.Key(),
			Attempt: attempt,
		})

		if err := step.run(ctx, m.driver, params); err != nil {
			lastErr = err
			m.logStep(NavigationLogEvent{
				Kind:     LogTransitionError,
				From:     step.From,
				To:       step.To,
				Attempt:  attempt,
				Duration: time.Since(start),
				Err:      err,
			})
			continue
		}

		observed, err := m.WhereAmI(ctx, params)
		if err != nil {
			lastErr = err
			continue
		}

		matched := observed == expectedBase
		if matched && len(step.To) > 1 {
			detail, err := m.StateDetail(ctx, params)
			if err != nil {
				lastErr = err
				continue
			}
			matched = step.To.Submap(detail)
		}
		if matched {
			// The just-verified match is authoritative; keep the declared
			// end instead of re-querying.
			m.current = expectedBase
			m.logStep(NavigationLogEvent{
				Kind:     LogTransitionOK,
				From:     step.From,
				To:       step.To,
				Attempt:  attempt,
				Duration: time.Since(start),
			})
			return nil
		}

		if observed == pre {
			lastErr = fmt.Errorf("pagestate: no transition occurred from %q", pre)
			m.logStep(NavigationLogEvent{
				Kind:     LogNoTransition,
				From:     step.From,
				To:       step.To,
				Observed: observed,
				Attempt:  attempt,
				Duration: time.Since(start),
			})
		} else {
			lastErr = fmt.Errorf("pagestate: transition led to wrong state %q", observed)
			m.logStep(NavigationLogEvent{
				Kind:     LogWrongState,
				From:     step.From,
				To:       step.To,
				Observed: observed,
				Attempt:  attempt,
				Duration: time.Since(start),
			})
			// WhereAmI already moved the cached state to the unexpected
			// landing; the next attempt retries the same edge from there.
		}
	}

	m.emit(ctx, journal.Event{
		Verb:    journal.VerbTransitionFailed,
		RunID:   runID,
		From:    step.From.Key(),
		To:      step.To.Key(),
		Attempt: retries,
	})
	return &TraversalError{
		From:     step.From,
		To:       step.To,
		Attempts: retries,
		Err:      lastErr,
	}
}

// EnsureState routes to the named base state, traverses the path, and runs
// continuation once the state is confirmed reached. Continuation may be nil.
func (m *Machine) EnsureState(ctx context.Context, name string, params Params, continuation Continuation, opts ...EnsureOption) error {
	cfg := m.applyEnsureOptions(opts)
	path, err := m.FindPath(ctx, name, params)
	if err != nil {
		return err
	}
	if err := m.traverse(ctx, path, params, cfg.retries, uuid.NewString()); err != nil {
		return err
	}
	if continuation != nil {
		return continuation(ctx, m.driver, params)
	}
	return nil
}

// EnsureEitherState routes to the cheapest reachable candidate. Candidates
// with no route are skipped; any other routing error propagates immediately.
// The chosen state name is returned and passed to continuation when supplied.
func (m *Machine) EnsureEitherState(ctx context.Context, candidates []string, params Params, continuation EitherContinuation, opts ...EnsureOption) (string, error) {
	cfg := m.applyEnsureOptions(opts)

	chosen := ""
	var chosenPath Path
	bestCost := 0
	for _, candidate := range candidates {
		path, err := m.FindPath(ctx, candidate, params)
		if err != nil {
			if errors.Is(err, ErrNoRoute) {
				continue
			}
			return "", err
		}
		cost := path.TotalCost()
		if chosen == "" || cost < bestCost {
			chosen, chosenPath, bestCost = candidate, path, cost
		}
	}
	if chosen == "" {
		return "", fmt.Errorf("%w to any of %q", ErrNoRoute, candidates)
	}

	if err := m.traverse(ctx, chosenPath, params, cfg.retries, uuid.NewString()); err != nil {
		return "", err
	}
	if continuation != nil {
		if err := continuation(ctx, m.driver, params, chosen); err != nil {
			return "", err
		}
	}
	return chosen, nil
}

// EnsureCompositeState routes to any expanded composite state matching
// target, traversing fragment transitions. The current position must be
// classifiable; see FindCompositePath.
func (m *Machine) EnsureCompositeState(ctx context.Context, target Fragment, params Params, continuation Continuation, opts ...EnsureOption) error {
	cfg := m.applyEnsureOptions(opts)
	path, err := m.FindCompositePath(ctx, target, params)
	if err != nil {
		return err
	}
	if err := m.traverse(ctx, path, params, cfg.retries, uuid.NewString()); err != nil {
		return err
	}
	if continuation != nil {
		return continuation(ctx, m.driver, params)
	}
	return nil
}

func (m *Machine) logStep(event NavigationLogEvent) {
	m.navLogger().LogNavigation(event)
}
