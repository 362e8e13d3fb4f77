// Package journal fans out navigation events to consumer-owned hooks: test
// reporters, crawl audit logs, metrics adapters. Hooks receive normalized
// events and must tolerate being called from the middle of a traversal; a
// failing hook never interrupts navigation.
package journal

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// Verbs emitted by the state machine.
const (
	VerbStateResolved       = "state.resolved"
	VerbPathComputed        = "path.computed"
	VerbPathCompleted       = "path.completed"
	VerbTransitionAttempted = "transition.attempted"
	VerbTransitionFailed    = "transition.failed"
)

// Event describes one navigation occurrence. From and To carry canonical
// fragment keys for transition events; State carries the resolved base state
// for classification events. RunID groups the events of a single navigation
// request.
type Event struct {
	Verb       string
	RunID      string
	State      string
	From       string
	To         string
	Attempt    int
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized navigation events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event and forwards it to every hook. Events without
// a verb are dropped. Hook failures are collected and joined; a failing hook
// does not keep siblings from being notified.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	event = NormalizeEvent(event)
	if len(h) == 0 || event.Verb == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var failed error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			failed = errors.Join(failed, err)
		}
	}
	return failed
}

// NormalizeEvent trims the string fields, detaches metadata from the
// caller's map, and stamps OccurredAt when unset.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{&event.Verb, &event.RunID, &event.State, &event.From, &event.To} {
		*field = strings.TrimSpace(*field)
	}
	if len(event.Metadata) > 0 {
		event.Metadata = maps.Clone(event.Metadata)
	} else {
		event.Metadata = nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}
