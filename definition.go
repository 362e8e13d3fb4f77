package pagestate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-pagestate/internal/hydrate"
)

// Definition is a declarative site map: states with expression predicates,
// composite fragments, and transitions built from primitive driver actions.
// It is the config-file counterpart of the programmatic declaration calls.
type Definition struct {
	Name        string          `json:"name"`
	States      []StateDef      `json:"states"`
	Composites  []CompositeDef  `json:"composites,omitempty"`
	Transitions []TransitionDef `json:"transitions,omitempty"`
	Occlusions  []OcclusionDef  `json:"occlusions,omitempty"`
}

// StateDef declares one base state. Test is an expression evaluated against
// the page snapshot.
type StateDef struct {
	Name string `json:"name"`
	Test string `json:"test"`
}

// CompositeDef declares one composite fragment. When Default is set the
// fragment applies to every base state not yet covered and States is ignored.
type CompositeDef struct {
	Fragment map[string]string `json:"fragment"`
	States   []string          `json:"states,omitempty"`
	Test     string            `json:"test"`
	Default  bool              `json:"default,omitempty"`
}

// TransitionDef declares one transition. Exactly one of From/FromFragment
// styles applies: plain names declare a base-state transition, fragments a
// composite one. Default marks the fallback transition from the unknown
// state, in which case only To and Action are read.
type TransitionDef struct {
	From         string            `json:"from,omitempty"`
	To           string            `json:"to,omitempty"`
	FromFragment map[string]string `json:"from_fragment,omitempty"`
	ToFragment   map[string]string `json:"to_fragment,omitempty"`
	Default      bool              `json:"default,omitempty"`
	Cost         int               `json:"cost,omitempty"`
	Action       ActionDef         `json:"action"`
}

// ActionDef is a primitive driver action used as transition logic.
type ActionDef struct {
	Type     string `json:"type"`
	Selector string `json:"selector,omitempty"`
	URL      string `json:"url,omitempty"`
	Value    string `json:"value,omitempty"`
}

// OcclusionDef declares fragments under which a layer cannot be verified.
type OcclusionDef struct {
	Layer     string              `json:"layer"`
	Fragments []map[string]string `json:"fragments"`
}

// ParseDefinition decodes a JSON site definition.
func ParseDefinition(payload []byte) (Definition, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Definition{}, fmt.Errorf("pagestate: parse definition: %w", err)
	}
	name, _ := raw["name"].(string)
	decoder := hydrate.NewDecoder(
		hydrate.WithDisallowUnknownFields[Definition](),
		hydrate.WithPostHook[Definition](func(_ hydrate.Context, def *Definition) error {
			if len(def.States) == 0 {
				return fmt.Errorf("definition declares no states")
			}
			return nil
		}),
	)
	def, err := decoder.Decode(hydrate.Context{Name: name, Source: "json"}, raw)
	if err != nil {
		return Definition{}, fmt.Errorf("pagestate: %w", err)
	}
	return def, nil
}

// LoadDefinition registers everything the definition declares: states first,
// then composites in order, then transitions and occlusions. Declaration
// errors abort with the offending entry named.
func (m *Machine) LoadDefinition(def Definition) error {
	for _, state := range def.States {
		if err := m.AddState(state.Name, m.ExpressionPredicate(state.Test)); err != nil {
			return err
		}
	}
	for _, composite := range def.Composites {
		fragment := Fragment(composite.Fragment)
		test := m.ExpressionPredicate(composite.Test)
		var err error
		if composite.Default {
			err = m.AddDefaultCompositeState(fragment, test)
		} else {
			err = m.AddCompositeState(fragment, composite.States, test)
		}
		if err != nil {
			return err
		}
	}
	for _, transition := range def.Transitions {
		if err := m.loadTransition(transition); err != nil {
			return err
		}
	}
	for _, occlusion := range def.Occlusions {
		fragments := make([]Fragment, 0, len(occlusion.Fragments))
		for _, fragment := range occlusion.Fragments {
			fragments = append(fragments, Fragment(fragment))
		}
		if err := m.AddStateOcclusion(occlusion.Layer, fragments); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) loadTransition(def TransitionDef) error {
	run, err := actionFunc(def.Action)
	if err != nil {
		return err
	}
	var opts []TransitionOption
	if def.Cost > 0 {
		opts = append(opts, WithCost(def.Cost))
	}
	switch {
	case def.Default:
		return m.AddDefaultStateTransition(def.To, run, opts...)
	case len(def.FromFragment) > 0 || len(def.ToFragment) > 0:
		return m.AddCompositeStateTransition(Fragment(def.FromFragment), Fragment(def.ToFragment), run, opts...)
	default:
		return m.AddStateTransition(def.From, def.To, run, opts...)
	}
}

func actionFunc(action ActionDef) (TransitionFunc, error) {
	switch action.Type {
	case "navigate":
		if action.URL == "" {
			return nil, fmt.Errorf("pagestate: navigate action requires a url")
		}
		return func(ctx context.Context, page PageDriver, _ Params) error {
			return page.Navigate(ctx, action.URL)
		}, nil
	case "click":
		if action.Selector == "" {
			return nil, fmt.Errorf("pagestate: click action requires a selector")
		}
		return func(ctx context.Context, page PageDriver, _ Params) error {
			return page.Click(ctx, action.Selector)
		}, nil
	case "keys":
		if action.Selector == "" {
			return nil, fmt.Errorf("pagestate: keys action requires a selector")
		}
		return func(ctx context.Context, page PageDriver, _ Params) error {
			return page.SendKeys(ctx, action.Selector, action.Value)
		}, nil
	case "none", "":
		return func(context.Context, PageDriver, Params) error {
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("pagestate: unsupported action type %q", action.Type)
	}
}
