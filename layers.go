package pagestate

import (
	"fmt"
	"slices"
)

// AddCompositeState registers a composite fragment (one or more layer
// assignments) together with the base states it applies to and its test
// predicate. Layers are created on first use and accumulate across calls;
// re-declaring a layer value for additional base states unions the base list.
//
// When the fragment spans more than one layer, each layer after the first
// records a dependency on the assignments processed before it, so its
// applicability during expansion is conditioned on the earlier-layer values
// already chosen, not just on base-state membership. Layer keys are processed
// in canonical (sorted) order, and dependency direction follows that order:
// expansion walks layers in registration order, so a dependency recorded on
// an alphabetically-earlier key that names a later-registered layer can never
// be satisfied. Name multi-layer fragments so the sorted order of their keys
// matches the layers' registration order.
//
// Base-state membership is intentionally not validated here: missing
// coverage surfaces as an expansion error on the first query, mirroring the
// just-in-time validation of the rest of the registry.
func (m *Machine) AddCompositeState(fragment Fragment, baseStates []string, test Predicate) error {
	if len(fragment) == 0 {
		return fmt.Errorf("pagestate: composite fragment must not be empty")
	}
	if _, reserved := fragment[BaseKey]; reserved {
		return fmt.Errorf("pagestate: composite fragment must not assign %q", BaseKey)
	}
	key := fragment.Key()
	if _, exists := m.fragments[key]; exists {
		return fmt.Errorf("pagestate: composite state %q already registered", key)
	}

	m.fragments[key] = struct{}{}

	processed := Fragment{}
	for i, layerName := range fragment.Keys() {
		value := fragment[layerName]
		layer := m.layerIndex[layerName]
		if layer == nil {
			layer = &layerEntry{name: layerName, values: map[string]*fragmentDef{}}
			m.layers = append(m.layers, layer)
			m.layerIndex[layerName] = layer
		}

		def := layer.values[value]
		if def == nil {
			def = &fragmentDef{
				value:      value,
				baseStates: slices.Clone(baseStates),
				test:       test,
			}
			layer.order = append(layer.order, value)
			layer.values[value] = def
		} else {
			for _, name := range baseStates {
				if !slices.Contains(def.baseStates, name) {
					def.baseStates = append(def.baseStates, name)
				}
			}
		}

		if i > 0 {
			def.deps = append(def.deps, dependency{
				assignments: processed.Clone(),
				baseStates:  slices.Clone(baseStates),
			})
		}
		processed[layerName] = value
	}
	return nil
}

// AddDefaultCompositeState registers fragment for every base state not yet
// covered by any existing fragment across the fragment's layers. This is the
// usual way to close a layer so expansion never finds a hole.
func (m *Machine) AddDefaultCompositeState(fragment Fragment, test Predicate) error {
	if len(fragment) == 0 {
		return fmt.Errorf("pagestate: composite fragment must not be empty")
	}
	covered := map[string]struct{}{}
	for layerName := range fragment {
		layer := m.layerIndex[layerName]
		if layer == nil {
			continue
		}
		for _, def := range layer.values {
			for _, name := range def.baseStates {
				covered[name] = struct{}{}
			}
		}
	}
	var baseStates []string
	for _, entry := range m.states {
		if _, ok := covered[entry.name]; !ok {
			baseStates = append(baseStates, entry.name)
		}
	}
	return m.AddCompositeState(fragment, baseStates, test)
}

// LayerNames returns declared layer names in registration order.
func (m *Machine) LayerNames() []string {
	names := make([]string, len(m.layers))
	for i, layer := range m.layers {
		names[i] = layer.name
	}
	return names
}

// isDependencySatisfied reports whether def applies to base given the partial
// composite state accumulated so far. Without dependencies only base-state
// membership matters; with dependencies at least one must both contain base
// and be a submap of the partial state.
func isDependencySatisfied(base string, def *fragmentDef, partial Fragment) bool {
	if len(def.deps) == 0 {
		return slices.Contains(def.baseStates, base)
	}
	for _, dep := range def.deps {
		if slices.Contains(dep.baseStates, base) && dep.assignments.Submap(partial) {
			return true
		}
	}
	return false
}

// computeCompositeStates expands the full cross-product of base states and
// layer values. The expansion is recomputed from scratch on every query so
// results always reflect the latest declarations. A partial state that
// matches no fragment at some layer is the core validity violation and fails
// immediately.
func (m *Machine) computeCompositeStates() ([]Fragment, error) {
	partials := make([]Fragment, 0, len(m.states))
	for _, entry := range m.states {
		partials = append(partials, BaseFragment(entry.name))
	}

	for _, layer := range m.layers {
		next := make([]Fragment, 0, len(partials))
		for _, partial := range partials {
			matched := false
			for _, value := range layer.order {
				def := layer.values[value]
				if !isDependencySatisfied(partial.Base(), def, partial) {
					continue
				}
				expanded := partial.Clone()
				expanded[layer.name] = value
				next = append(next, expanded)
				matched = true
			}
			if !matched {
				return nil, fmt.Errorf("pagestate: no composite state of type %q exists for base state %q", layer.name, partial.Base())
			}
		}
		partials = next
	}
	return partials, nil
}

// AllStates returns every expanded composite state, optionally filtered by a
// partial assignment. Filter keys must name BaseKey or a declared layer.
func (m *Machine) AllStates(filter Fragment) ([]Fragment, error) {
	states, err := m.computeCompositeStates()
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return states, nil
	}
	for name := range filter {
		if name == BaseKey {
			continue
		}
		if _, ok := m.layerIndex[name]; !ok {
			return nil, fmt.Errorf("pagestate: unknown layer %q in filter", name)
		}
	}
	matched := states[:0:0]
	for _, state := range states {
		if filter.Submap(state) {
			matched = append(matched, state)
		}
	}
	return matched, nil
}

// IsValidState reports whether candidate is a submap of at least one fully
// expanded composite state.
func (m *Machine) IsValidState(candidate Fragment) (bool, error) {
	states, err := m.computeCompositeStates()
	if err != nil {
		return false, err
	}
	for _, state := range states {
		if candidate.Submap(state) {
			return true, nil
		}
	}
	return false, nil
}

// resolveOne resolves candidate to exactly one expanded composite state.
func (m *Machine) resolveOne(candidate Fragment) (Fragment, error) {
	states, err := m.computeCompositeStates()
	if err != nil {
		return nil, err
	}
	var resolved Fragment
	for _, state := range states {
		if !candidate.Submap(state) {
			continue
		}
		if resolved != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousState, candidate.Key())
		}
		resolved = state
	}
	if resolved == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, candidate.Key())
	}
	return resolved, nil
}
