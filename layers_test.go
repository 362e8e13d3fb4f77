package pagestate

import (
	"errors"
	"strings"
	"testing"
)

func mustAddComposite(t *testing.T, m *Machine, fragment Fragment, baseStates []string, test Predicate) {
	t.Helper()
	if err := m.AddCompositeState(fragment, baseStates, test); err != nil {
		t.Fatalf("AddCompositeState(%q): %v", fragment.Key(), err)
	}
}

func stateKeys(states []Fragment) map[string]struct{} {
	keys := make(map[string]struct{}, len(states))
	for _, state := range states {
		keys[state.Key()] = struct{}{}
	}
	return keys
}

func TestAddCompositeStateValidation(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))

	if err := m.AddCompositeState(Fragment{}, []string{"foo"}, truePredicate); err == nil {
		t.Fatalf("expected error for empty fragment")
	}
	if err := m.AddCompositeState(Fragment{BaseKey: "foo"}, []string{"foo"}, truePredicate); err == nil {
		t.Fatalf("expected error for reserved base key in fragment")
	}
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo"}, truePredicate)
	if err := m.AddCompositeState(Fragment{"loggedIn": "yes"}, []string{"foo"}, truePredicate); err == nil {
		t.Fatalf("expected error for duplicate fragment")
	}
}

func TestExpansionCrossProduct(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo", "bar"}, truePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "no"}, []string{"foo", "bar"}, falsePredicate)

	states, err := m.AllStates(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 4 {
		t.Fatalf("expected 4 expanded states, got %d: %v", len(states), states)
	}
	keys := stateKeys(states)
	for _, want := range []string{
		"base=foo&loggedIn=yes",
		"base=foo&loggedIn=no",
		"base=bar&loggedIn=yes",
		"base=bar&loggedIn=no",
	} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("missing expanded state %q in %v", want, keys)
		}
	}
}

func TestExpansionFailsOnUncoveredBaseState(t *testing.T) {
	m := New(newFakeDriver("foo"))
	for _, name := range []string{"foo", "bar", "baz", "qux"} {
		mustAddState(t, m, name, onPage(name))
	}
	mustAddComposite(t, m, Fragment{"gender": "male"}, []string{"bar", "baz", "qux"}, truePredicate)

	_, err := m.AllStates(nil)
	if err == nil {
		t.Fatalf("expected expansion error for uncovered base state")
	}
	if !strings.Contains(err.Error(), `"gender"`) || !strings.Contains(err.Error(), `"foo"`) {
		t.Fatalf("expected error naming the layer and the hole, got %v", err)
	}
}

func TestExpansionReflectsLaterDeclarations(t *testing.T) {
	m := New(newFakeDriver("foo"))
	for _, name := range []string{"foo", "bar"} {
		mustAddState(t, m, name, onPage(name))
	}
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo"}, truePredicate)

	if _, err := m.AllStates(nil); err == nil {
		t.Fatalf("expected expansion error while bar is uncovered")
	}

	// Closing the hole makes the very next query succeed.
	mustAddComposite(t, m, Fragment{"loggedIn": "no"}, []string{"bar"}, falsePredicate)
	states, err := m.AllStates(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 expanded states, got %v", states)
	}
}

func TestDependencyDirectionFollowsSortedKeyOrder(t *testing.T) {
	// Multi-layer fragments record dependencies in sorted key order, while
	// expansion walks layers in registration order. A fragment whose
	// sorted-first key names a later-registered layer therefore records a
	// dependency expansion can never satisfy.
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddComposite(t, m, Fragment{"menu": "open"}, []string{"foo"}, truePredicate)
	mustAddComposite(t, m, Fragment{"aside": "pinned", "menu": "open"}, []string{"foo"}, truePredicate)

	_, err := m.AllStates(nil)
	if err == nil || !strings.Contains(err.Error(), `"menu"`) {
		t.Fatalf("expected expansion to fail at the menu layer, got %v", err)
	}

	// Registering the sorted-first layer first keeps both orders aligned.
	m = New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddComposite(t, m, Fragment{"aside": "pinned"}, []string{"foo"}, truePredicate)
	mustAddComposite(t, m, Fragment{"aside": "pinned", "menu": "open"}, []string{"foo"}, truePredicate)

	states, err := m.AllStates(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 1 || states[0].Key() != "aside=pinned&base=foo&menu=open" {
		t.Fatalf("unexpected expansion %v", states)
	}
}

func TestDependencyGatesLaterLayers(t *testing.T) {
	m := New(newFakeDriver("bar"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes", "vip": "yes"}, []string{"bar"}, truePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "yes", "vip": "no"}, []string{"bar"}, falsePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "no", "vip": "none"}, []string{"bar"}, falsePredicate)

	states, err := m.AllStates(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// vip values only combine with the loggedIn value they were declared
	// alongside, so the raw 2x3 product collapses to three states.
	if len(states) != 3 {
		t.Fatalf("expected 3 expanded states, got %d: %v", len(states), states)
	}
	keys := stateKeys(states)
	for _, want := range []string{
		"base=bar&loggedIn=yes&vip=yes",
		"base=bar&loggedIn=yes&vip=no",
		"base=bar&loggedIn=no&vip=none",
	} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("missing expanded state %q in %v", want, keys)
		}
	}
	if _, ok := keys["base=bar&loggedIn=no&vip=yes"]; ok {
		t.Fatalf("dependency failed to gate vip=yes behind loggedIn=yes")
	}
}

func TestAddDefaultCompositeState(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"bar"}, truePredicate)
	if err := m.AddDefaultCompositeState(Fragment{"loggedIn": "n/a"}, falsePredicate); err != nil {
		t.Fatalf("AddDefaultCompositeState: %v", err)
	}

	states, err := m.AllStates(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := stateKeys(states)
	if _, ok := keys["base=foo&loggedIn=n/a"]; !ok {
		t.Fatalf("expected default to cover foo, got %v", keys)
	}
	if _, ok := keys["base=bar&loggedIn=n/a"]; ok {
		t.Fatalf("default must not apply to already covered bar, got %v", keys)
	}
}

func TestAllStatesFilter(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo", "bar"}, truePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "no"}, []string{"foo", "bar"}, falsePredicate)

	states, err := m.AllStates(Fragment{"loggedIn": "yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 filtered states, got %v", states)
	}

	states, err = m.AllStates(Fragment{BaseKey: "foo", "loggedIn": "no"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 1 || states[0].Key() != "base=foo&loggedIn=no" {
		t.Fatalf("expected single match, got %v", states)
	}

	if _, err := m.AllStates(Fragment{"ghost": "x"}); err == nil {
		t.Fatalf("expected error for unknown layer in filter")
	}
}

func TestIsValidState(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo"}, truePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "no"}, []string{"foo", "bar"}, falsePredicate)

	cases := []struct {
		candidate Fragment
		want      bool
	}{
		{Fragment{BaseKey: "foo"}, true},
		{Fragment{BaseKey: "foo", "loggedIn": "yes"}, true},
		{Fragment{BaseKey: "bar", "loggedIn": "yes"}, false},
		{Fragment{"loggedIn": "no"}, true},
		{Fragment{BaseKey: "ghost"}, false},
	}
	for _, tc := range cases {
		got, err := m.IsValidState(tc.candidate)
		if err != nil {
			t.Fatalf("IsValidState(%q): %v", tc.candidate.Key(), err)
		}
		if got != tc.want {
			t.Fatalf("IsValidState(%q) = %v, want %v", tc.candidate.Key(), got, tc.want)
		}
	}
}

func TestCompositeNeighborsResolution(t *testing.T) {
	driver := newFakeDriver("foo")
	m := New(driver)
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddState(t, m, "bar", onPage("bar"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo", "bar"}, truePredicate)
	mustAddComposite(t, m, Fragment{"loggedIn": "no"}, []string{"foo", "bar"}, falsePredicate)
	mustAddTransition(t, m, "foo", "bar", goTo("bar"))

	// Ambiguous: matches foo with both loggedIn values.
	_, err := m.CompositeNeighbors(Fragment{BaseKey: "foo"})
	if !errors.Is(err, ErrAmbiguousState) {
		t.Fatalf("expected ErrAmbiguousState, got %v", err)
	}

	// Invalid: matches nothing.
	_, err = m.CompositeNeighbors(Fragment{BaseKey: "ghost"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	neighbors, err := m.CompositeNeighbors(Fragment{BaseKey: "foo", "loggedIn": "yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected one neighbor, got %v", neighbors)
	}
	// The simple foo -> bar edge is visible to composite queries, and the
	// untouched layer value carries over.
	if neighbors[0].Base() != "bar" || neighbors[0]["loggedIn"] != "yes" {
		t.Fatalf("unexpected neighbor %q", neighbors[0].Key())
	}
}

func TestLayerNames(t *testing.T) {
	m := New(newFakeDriver("foo"))
	mustAddState(t, m, "foo", onPage("foo"))
	mustAddComposite(t, m, Fragment{"loggedIn": "yes"}, []string{"foo"}, truePredicate)
	mustAddComposite(t, m, Fragment{"menu": "open"}, []string{"foo"}, truePredicate)

	names := m.LayerNames()
	if len(names) != 2 || names[0] != "loggedIn" || names[1] != "menu" {
		t.Fatalf("expected [loggedIn menu], got %v", names)
	}
}
