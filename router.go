package pagestate

import (
	"context"
	"fmt"

	"github.com/goliatone/go-pagestate/pkg/journal"
)

// Step is one directed edge of a computed path.
type Step struct {
	From Fragment
	To   Fragment
	Cost int

	run TransitionFunc
}

// Path is an ordered list of steps from the current position to a target.
type Path []Step

// TotalCost sums the step costs.
func (p Path) TotalCost() int {
	total := 0
	for _, step := range p {
		total += step.Cost
	}
	return total
}

// FindPath computes the cheapest sequence of transitions from the current
// position to target. The current state is resolved first; when it cannot be
// classified, or it is a legitimate state with no path out, routing starts
// from the synthetic unknown state so a default transition can recover. The
// sentinel is always seeded alongside the current state, so a cheap default
// route can beat an expensive direct one. Returns an empty path when the
// machine is already at target, and ErrNoRoute when target is unreachable.
func (m *Machine) FindPath(ctx context.Context, target string, params Params) (Path, error) {
	if _, ok := m.stateIndex[target]; !ok {
		return nil, fmt.Errorf("pagestate: target state %q is not registered", target)
	}

	current, err := m.WhereAmI(ctx, params)
	if err != nil {
		return nil, err
	}
	if current != UnknownState && len(m.edges[current]) == 0 {
		// A legitimate state with no path out: fall back to the sentinel.
		current = UnknownState
	}
	if current == target {
		return Path{}, nil
	}

	dist := map[string]int{current: 0, UnknownState: 0}
	pred := map[string]string{}
	visited := map[string]struct{}{}

	vertices := make([]string, 0, len(m.states)+1)
	vertices = append(vertices, UnknownState)
	for _, entry := range m.states {
		vertices = append(vertices, entry.name)
	}

	for {
		// Extract the unvisited vertex with minimal tentative distance.
		next := ""
		best := 0
		for _, v := range vertices {
			if _, done := visited[v]; done {
				continue
			}
			d, reachable := dist[v]
			if !reachable {
				continue
			}
			if next == "" || d < best {
				next, best = v, d
			}
		}
		if next == "" {
			break
		}
		visited[next] = struct{}{}

		for end, e := range m.outgoing(next) {
			tentative := best + e.cost
			if d, ok := dist[end]; !ok || tentative < d {
				dist[end] = tentative
				pred[end] = next
			}
		}
	}

	path, ok := m.reconstruct(pred, current, target)
	if !ok {
		return nil, fmt.Errorf("%w from %q to %q and no default route exists", ErrNoRoute, current, target)
	}
	m.emit(ctx, journal.Event{
		Verb:  journal.VerbPathComputed,
		From:  current,
		To:    target,
		Metadata: map[string]any{
			"steps": len(path),
			"cost":  path.TotalCost(),
		},
	})
	return path, nil
}

func (m *Machine) outgoing(vertex string) map[string]*edge {
	if vertex == UnknownState {
		return m.defaultEdge
	}
	return m.edges[vertex]
}

// reconstruct walks predecessor pointers backward from target until it
// reaches a seed vertex (the current state or the sentinel).
func (m *Machine) reconstruct(pred map[string]string, current, target string) (Path, bool) {
	var reversed []Step
	at := target
	for at != current && at != UnknownState {
		from, ok := pred[at]
		if !ok {
			return nil, false
		}
		var e *edge
		if from == UnknownState {
			e = m.defaultEdge[at]
		} else {
			e = m.edges[from][at]
		}
		reversed = append(reversed, Step{
			From: BaseFragment(from),
			To:   BaseFragment(at),
			Cost: e.cost,
			run:  e.run,
		})
		at = from
		if from == current {
			break
		}
	}
	path := make(Path, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path, true
}

// FindCompositePath computes the cheapest sequence of fragment transitions
// from the current full composite state to any expanded state matching
// target. The current position must be classifiable (base state and every
// layer); callers starting from an unknown position should route to a base
// state first.
func (m *Machine) FindCompositePath(ctx context.Context, target Fragment, params Params) (Path, error) {
	states, err := m.computeCompositeStates()
	if err != nil {
		return nil, err
	}
	targetMatches := map[string]struct{}{}
	for _, state := range states {
		if target.Submap(state) {
			targetMatches[state.Key()] = struct{}{}
		}
	}
	if len(targetMatches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, target.Key())
	}

	base, err := m.WhereAmI(ctx, params)
	if err != nil {
		return nil, err
	}
	if base == UnknownState {
		return nil, fmt.Errorf("%w: cannot route to composite %q", ErrUnknownState, target.Key())
	}
	detail, err := m.StateDetail(ctx, params)
	if err != nil {
		return nil, err
	}
	start := detail.Key()
	if _, done := targetMatches[start]; done {
		return Path{}, nil
	}

	type cedge struct {
		fe *fragEdge
		to Fragment
	}
	dist := map[string]int{start: 0}
	fullStates := map[string]Fragment{start: detail}
	pred := map[string]string{}
	predEdge := map[string]*fragEdge{}
	visited := map[string]struct{}{}

	goal := ""
	for {
		next := ""
		best := 0
		for key, d := range dist {
			if _, done := visited[key]; done {
				continue
			}
			if next == "" || d < best {
				next, best = key, d
			}
		}
		if next == "" {
			break
		}
		visited[next] = struct{}{}
		if _, done := targetMatches[next]; done {
			goal = next
			break
		}

		full := fullStates[next]
		var outgoing []cedge
		for _, out := range m.fragEdges {
			for _, fe := range out {
				if fe.start.Submap(full) {
					outgoing = append(outgoing, cedge{fe: fe, to: full.Merge(fe.end)})
				}
			}
		}
		for _, ce := range outgoing {
			key := ce.to.Key()
			tentative := best + ce.fe.cost
			if d, ok := dist[key]; !ok || tentative < d {
				dist[key] = tentative
				fullStates[key] = ce.to
				pred[key] = next
				predEdge[key] = ce.fe
			}
		}
	}
	if goal == "" {
		return nil, fmt.Errorf("%w from %q to %q", ErrNoRoute, start, target.Key())
	}

	var reversed []Step
	for at := goal; at != start; at = pred[at] {
		fe := predEdge[at]
		reversed = append(reversed, Step{
			From: fullStates[pred[at]],
			To:   fullStates[at],
			Cost: fe.cost,
			run:  fe.run,
		})
	}
	path := make(Path, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	m.emit(ctx, journal.Event{
		Verb: journal.VerbPathComputed,
		From: start,
		To:   target.Key(),
		Metadata: map[string]any{
			"steps": len(path),
			"cost":  path.TotalCost(),
		},
	})
	return path, nil
}
