package pagestate

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-pagestate/pkg/journal"
)

// AddState registers a named base state and its test predicate. Declaration
// order doubles as test priority: predicates are not guaranteed mutually
// exclusive, so earlier-declared states win when classifying the current
// position.
func (m *Machine) AddState(name string, test Predicate) error {
	if name == "" {
		return fmt.Errorf("pagestate: state name must not be empty")
	}
	if name == UnknownState {
		return fmt.Errorf("pagestate: state name %q is reserved", UnknownState)
	}
	if test == nil {
		return fmt.Errorf("pagestate: state %q requires a test predicate", name)
	}
	if _, exists := m.stateIndex[name]; exists {
		return fmt.Errorf("pagestate: state %q already registered", name)
	}
	entry := &stateEntry{name: name, test: test}
	m.states = append(m.states, entry)
	m.stateIndex[name] = entry
	return nil
}

// StateNames returns the registered base-state names in declaration order.
func (m *Machine) StateNames() []string {
	names := make([]string, len(m.states))
	for i, entry := range m.states {
		names[i] = entry.name
	}
	return names
}

// WhereAmI classifies the current position. When a cached current state
// exists and its predicate still holds, it is returned without scanning the
// remaining states. Otherwise every state is tested in priority order and the
// first match wins; UnknownState is returned when nothing matches. The cached
// current state is updated as a side effect.
func (m *Machine) WhereAmI(ctx context.Context, params Params) (string, error) {
	if m.current != "" {
		if entry, ok := m.stateIndex[m.current]; ok {
			matched, err := m.evaluatePredicate(ctx, entry.test, params)
			if err != nil {
				return "", err
			}
			if matched {
				return entry.name, nil
			}
		}
	}

	start := time.Now()
	for _, entry := range m.states {
		matched, err := m.evaluatePredicate(ctx, entry.test, params)
		if err != nil {
			return "", err
		}
		if matched {
			m.current = entry.name
			m.emit(ctx, journal.Event{
				Verb:     journal.VerbStateResolved,
				State:    entry.name,
				Metadata: map[string]any{"elapsed": time.Since(start).String()},
			})
			return entry.name, nil
		}
	}

	m.current = ""
	m.emit(ctx, journal.Event{
		Verb:  journal.VerbStateResolved,
		State: UnknownState,
	})
	return UnknownState, nil
}

func (m *Machine) evaluatePredicate(ctx context.Context, test Predicate, params Params) (bool, error) {
	if test == nil {
		return false, nil
	}
	return test(ctx, m.driver, params)
}
