package pagestate

import "fmt"

// TransitionOption configures a single transition declaration.
type TransitionOption func(*transitionConfig)

type transitionConfig struct {
	cost int
}

// WithCost sets the transition cost. Costs must be nonnegative; routing is
// standard Dijkstra and negative costs are unsupported. Default is 1.
func WithCost(cost int) TransitionOption {
	return func(cfg *transitionConfig) {
		cfg.cost = cost
	}
}

func applyTransitionOptions(opts []TransitionOption) (transitionConfig, error) {
	cfg := transitionConfig{cost: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.cost < 0 {
		return cfg, fmt.Errorf("pagestate: transition cost must not be negative")
	}
	return cfg, nil
}

// AddStateTransition declares a directed edge between two registered base
// states. An existing edge may only be replaced by one with strictly lower
// cost. The edge is mirrored into the fragment-transition table so composite
// routing sees simple transitions uniformly.
func (m *Machine) AddStateTransition(start, end string, run TransitionFunc, opts ...TransitionOption) error {
	cfg, err := applyTransitionOptions(opts)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("pagestate: transition %q -> %q requires transition logic", start, end)
	}
	if _, ok := m.stateIndex[start]; !ok {
		return fmt.Errorf("pagestate: transition start state %q is not registered", start)
	}
	if _, ok := m.stateIndex[end]; !ok {
		return fmt.Errorf("pagestate: transition end state %q is not registered", end)
	}
	if start == end {
		return fmt.Errorf("pagestate: transition start and end must differ, got %q", start)
	}
	if existing := m.edgeBetween(start, end); existing != nil && existing.cost <= cfg.cost {
		return fmt.Errorf("pagestate: transition %q -> %q already exists with cost %d", start, end, existing.cost)
	}

	if m.edges[start] == nil {
		m.edges[start] = map[string]*edge{}
	}
	m.edges[start][end] = &edge{cost: cfg.cost, run: run}
	m.storeFragEdge(BaseFragment(start), BaseFragment(end), cfg.cost, run)
	return nil
}

// AddDefaultStateTransition declares the fallback edge from the synthetic
// unknown state to end, used whenever the current position cannot be
// classified. Declaring more than one default is a setup error.
func (m *Machine) AddDefaultStateTransition(end string, run TransitionFunc, opts ...TransitionOption) error {
	cfg, err := applyTransitionOptions(opts)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("pagestate: default transition to %q requires transition logic", end)
	}
	if _, ok := m.stateIndex[end]; !ok {
		return fmt.Errorf("pagestate: default transition end state %q is not registered", end)
	}
	if existing := m.defaultEdge[end]; existing != nil && existing.cost <= cfg.cost {
		return fmt.Errorf("pagestate: default transition to %q already exists with cost %d", end, existing.cost)
	}
	m.defaultEdge[end] = &edge{cost: cfg.cost, run: run}
	return nil
}

// AddCompositeStateTransition declares an edge between composite fragments.
// The end fragment is merged on top of the start fragment, and both the start
// fragment and the merged result must match at least one expanded composite
// state. Replacing an existing fragment transition requires strictly lower
// cost.
func (m *Machine) AddCompositeStateTransition(start, end Fragment, run TransitionFunc, opts ...TransitionOption) error {
	cfg, err := applyTransitionOptions(opts)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("pagestate: composite transition %q -> %q requires transition logic", start.Key(), end.Key())
	}
	if len(start) == 0 || len(end) == 0 {
		return fmt.Errorf("pagestate: composite transition fragments must not be empty")
	}

	valid, err := m.IsValidState(start)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("pagestate: composite transition start %q matches no valid state", start.Key())
	}
	merged := start.Merge(end)
	valid, err = m.IsValidState(merged)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("pagestate: composite transition end %q matches no valid state", merged.Key())
	}

	if existing := m.fragEdgeBetween(start, end); existing != nil && existing.cost <= cfg.cost {
		return fmt.Errorf("pagestate: composite transition %q -> %q already exists with cost %d", start.Key(), end.Key(), existing.cost)
	}
	m.storeFragEdge(start, end, cfg.cost, run)
	return nil
}

func (m *Machine) edgeBetween(start, end string) *edge {
	if out := m.edges[start]; out != nil {
		return out[end]
	}
	return nil
}

func (m *Machine) fragEdgeBetween(start, end Fragment) *fragEdge {
	if out := m.fragEdges[start.Key()]; out != nil {
		return out[end.Key()]
	}
	return nil
}

func (m *Machine) storeFragEdge(start, end Fragment, cost int, run TransitionFunc) {
	key := start.Key()
	if m.fragEdges[key] == nil {
		m.fragEdges[key] = map[string]*fragEdge{}
	}
	m.fragEdges[key][end.Key()] = &fragEdge{
		start: start.Clone(),
		end:   end.Clone(),
		cost:  cost,
		run:   run,
	}
}

// NeighborsOf returns the base states directly reachable from state.
func (m *Machine) NeighborsOf(state string) ([]string, error) {
	if _, ok := m.stateIndex[state]; !ok && state != UnknownState {
		return nil, fmt.Errorf("pagestate: state %q is not registered", state)
	}
	var neighbors []string
	if state == UnknownState {
		for end := range m.defaultEdge {
			neighbors = append(neighbors, end)
		}
		return neighbors, nil
	}
	for end := range m.edges[state] {
		neighbors = append(neighbors, end)
	}
	return neighbors, nil
}

// CompositeNeighbors resolves candidate to exactly one expanded composite
// state, then returns every full composite state reachable by applying any
// fragment transition whose start fragment is a submap of the resolved state.
// Zero matches yields ErrInvalidState; more than one yields ErrAmbiguousState.
func (m *Machine) CompositeNeighbors(candidate Fragment) ([]Fragment, error) {
	resolved, err := m.resolveOne(candidate)
	if err != nil {
		return nil, err
	}
	var neighbors []Fragment
	for _, out := range m.fragEdges {
		for _, fe := range out {
			if fe.start.Submap(resolved) {
				neighbors = append(neighbors, resolved.Merge(fe.end))
			}
		}
	}
	return neighbors, nil
}
