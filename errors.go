package pagestate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoute indicates no path exists from the current position to the
	// requested state and no default transition can bridge the gap.
	ErrNoRoute = errors.New("pagestate: no route exists")
	// ErrInvalidState indicates a fragment that matches no expanded
	// composite state.
	ErrInvalidState = errors.New("pagestate: not a valid state")
	// ErrAmbiguousState indicates a fragment that matches more than one
	// expanded composite state where exactly one is required.
	ErrAmbiguousState = errors.New("pagestate: ambiguous state, define more layers")
	// ErrUnknownState indicates the live page matched no registered
	// predicate when a concrete state was required.
	ErrUnknownState = errors.New("pagestate: current state is unknown")
)

// TraversalError reports an edge that failed after exhausting its retries.
// The machine's cached current state reflects the last observed position, not
// the intended target; callers must re-query before assuming any position.
type TraversalError struct {
	From     Fragment
	To       Fragment
	Attempts int
	Err      error
}

func (e *TraversalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("pagestate: transition %q -> %q failed after %d attempts", e.From.Key(), e.To.Key(), e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TraversalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
