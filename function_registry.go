package pagestate

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a callable exposed to expression predicates.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions under case-insensitive names.
// Typical entries are page helpers a site definition wants available in
// predicates (matchesPath, hasCookie, and so on).
type FunctionRegistry struct {
	mu      sync.RWMutex
	entries map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{entries: map[string]Function{}}
}

// Register stores fn under name. Names are compared case-insensitively and
// may be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if name == "" {
		return fmt.Errorf("pagestate: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("pagestate: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]Function{}
	}
	key := strings.ToLower(name)
	if _, taken := r.entries[key]; taken {
		return fmt.Errorf("pagestate: function %q already registered", name)
	}
	r.entries[key] = fn
	return nil
}

// Call invokes the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("pagestate: function registry is nil")
	}
	r.mu.RLock()
	fn := r.entries[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("pagestate: function %q not registered", name)
	}
	return fn(args...)
}

// Clone returns a detached copy; registrations on either side stay local.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{entries: maps.Clone(r.entries)}
}

// Names lists registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// WithCustomFunction registers fn on the machine's function registry.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *machineConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
