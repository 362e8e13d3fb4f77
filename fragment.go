package pagestate

import (
	"sort"
	"strings"
)

// BaseKey is the reserved fragment key holding the base-state name.
const BaseKey = "base"

// UnknownState is the sentinel returned when no registered predicate matches
// the live page. It cannot be registered as a state name and acts as the
// synthetic source vertex for default transitions.
const UnknownState = "__unknown__"

// Fragment is a partial assignment of layer names to values. A fragment that
// includes BaseKey and one value per declared layer is a full composite state.
type Fragment map[string]string

// BaseFragment wraps a base-state name into a single-entry fragment.
func BaseFragment(name string) Fragment {
	return Fragment{BaseKey: name}
}

// Base returns the base-state name carried by the fragment, if any.
func (f Fragment) Base() string {
	return f[BaseKey]
}

// Key returns the canonical serialization of the fragment. Two fragments with
// identical assignments produce identical keys regardless of insertion order.
func (f Fragment) Key() string {
	if len(f) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(f))
	for name, value := range f {
		pairs = append(pairs, name+"="+value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// Keys returns the fragment's layer names sorted alphabetically.
func (f Fragment) Keys() []string {
	keys := make([]string, 0, len(f))
	for name := range f {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Submap reports whether every assignment in f is present and equal in other.
func (f Fragment) Submap(other Fragment) bool {
	if len(f) > len(other) {
		return false
	}
	for name, value := range f {
		if got, ok := other[name]; !ok || got != value {
			return false
		}
	}
	return true
}

// Merge overlays other on top of f, returning a new fragment. Assignments in
// other win on conflict; neither input is mutated.
func (f Fragment) Merge(other Fragment) Fragment {
	merged := make(Fragment, len(f)+len(other))
	for name, value := range f {
		merged[name] = value
	}
	for name, value := range other {
		merged[name] = value
	}
	return merged
}

// Clone returns a detached copy of the fragment.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	out := make(Fragment, len(f))
	for name, value := range f {
		out[name] = value
	}
	return out
}

// Equal reports whether both fragments carry exactly the same assignments.
func (f Fragment) Equal(other Fragment) bool {
	return len(f) == len(other) && f.Submap(other)
}
