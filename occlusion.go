package pagestate

import (
	"context"
	"fmt"
)

// AddStateOcclusion registers fragments under which layer's live value cannot
// be verified (a modal covering the page, a collapsed menu, and so on). While
// the current position matches one of the fragments, StateDetail assumes the
// layer's last observed value instead of re-testing it.
func (m *Machine) AddStateOcclusion(layer string, fragments []Fragment) error {
	if layer == "" {
		return fmt.Errorf("pagestate: occlusion layer name must not be empty")
	}
	if len(fragments) == 0 {
		return fmt.Errorf("pagestate: occlusion for layer %q requires at least one fragment", layer)
	}
	for _, fragment := range fragments {
		m.occlusions[layer] = append(m.occlusions[layer], fragment.Clone())
	}
	return nil
}

// isLastKnownOccluded reports whether the cached base state combined with the
// last-known layer values matches any occlusion fragment registered for
// layer.
func (m *Machine) isLastKnownOccluded(layer string) bool {
	fragments := m.occlusions[layer]
	if len(fragments) == 0 {
		return false
	}
	combo := Fragment{BaseKey: m.CurrentState()}
	for name, value := range m.lastKnown {
		combo[name] = value
	}
	for _, fragment := range fragments {
		if fragment.Submap(combo) {
			return true
		}
	}
	return false
}

// LastKnown returns the last observed value for layer and whether one exists.
func (m *Machine) LastKnown(layer string) (string, bool) {
	value, ok := m.lastKnown[layer]
	return value, ok
}

// StateDetail resolves the full composite current state: the base state plus
// one value per declared layer. A layer's last-known value is reused when the
// layer is occluded or its predicate still passes; otherwise every value of
// the layer is re-tested in registration order and the first match adopted.
// A layer that cannot be determined at all is fatal.
func (m *Machine) StateDetail(ctx context.Context, params Params) (Fragment, error) {
	base, err := m.WhereAmI(ctx, params)
	if err != nil {
		return nil, err
	}
	if base == UnknownState {
		return nil, ErrUnknownState
	}

	detail := BaseFragment(base)
	for _, layer := range m.layers {
		value, err := m.resolveLayer(ctx, layer, params)
		if err != nil {
			return nil, err
		}
		detail[layer.name] = value
	}
	return detail, nil
}

func (m *Machine) resolveLayer(ctx context.Context, layer *layerEntry, params Params) (string, error) {
	if last, ok := m.lastKnown[layer.name]; ok {
		if m.isLastKnownOccluded(layer.name) {
			return last, nil
		}
		if def := layer.values[last]; def != nil {
			matched, err := m.evaluatePredicate(ctx, def.test, params)
			if err != nil {
				return "", err
			}
			if matched {
				return last, nil
			}
		}
	}

	for _, value := range layer.order {
		def := layer.values[value]
		matched, err := m.evaluatePredicate(ctx, def.test, params)
		if err != nil {
			return "", err
		}
		if matched {
			m.lastKnown[layer.name] = value
			return value, nil
		}
	}
	return "", fmt.Errorf("pagestate: unable to determine state for layer %q", layer.name)
}
