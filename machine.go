package pagestate

import (
	"context"
	"time"

	"github.com/goliatone/go-pagestate/pkg/journal"
	"github.com/goliatone/go-pagestate/pkg/session"
)

// Machine is a composite state machine over a driven page. All declaration
// calls (states, layers, transitions, occlusions) are expected to complete
// before the first navigation or query; the machine validates each call but
// does not otherwise enforce phase separation.
//
// A Machine is single-owner: predicates and transition logic execute strictly
// in sequence against the driver, and callers must not run two navigation
// operations concurrently against the same instance, since interleaving would
// corrupt the cached-state fast path.
type Machine struct {
	driver PageDriver
	cfg    machineConfig

	states     []*stateEntry
	stateIndex map[string]*stateEntry

	layers     []*layerEntry
	layerIndex map[string]*layerEntry
	fragments  map[string]struct{}

	edges       map[string]map[string]*edge
	fragEdges   map[string]map[string]*fragEdge
	defaultEdge map[string]*edge

	occlusions map[string][]Fragment

	current     string
	lastKnown   map[string]string
	sessionMeta session.Meta
}

type stateEntry struct {
	name string
	test Predicate
}

type layerEntry struct {
	name   string
	order  []string
	values map[string]*fragmentDef
}

type fragmentDef struct {
	value      string
	baseStates []string
	test       Predicate
	deps       []dependency
}

// dependency conditions a later layer's applicability on the layer values
// already chosen while expanding, not just on base-state membership.
type dependency struct {
	assignments Fragment
	baseStates  []string
}

type edge struct {
	cost int
	run  TransitionFunc
}

type fragEdge struct {
	start Fragment
	end   Fragment
	cost  int
	run   TransitionFunc
}

// Option configures a Machine at construction time.
type Option func(*machineConfig)

type machineConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	evalLogger   EvaluatorLogger
	navLogger    NavigationLogger
	hooks        journal.Hooks
	retries      int
	store        session.Store
	storeRef     session.Ref
}

const defaultRetries = 3

// New constructs a Machine bound to driver.
func New(driver PageDriver, opts ...Option) *Machine {
	cfg := machineConfig{retries: defaultRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Machine{
		driver:      driver,
		cfg:         cfg,
		stateIndex:  map[string]*stateEntry{},
		layerIndex:  map[string]*layerEntry{},
		fragments:   map[string]struct{}{},
		edges:       map[string]map[string]*edge{},
		fragEdges:   map[string]map[string]*fragEdge{},
		defaultEdge: map[string]*edge{},
		occlusions:  map[string][]Fragment{},
		lastKnown:   map[string]string{},
	}
}

// WithEvaluator configures the expression evaluator used for expression
// predicates and declarative definitions.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *machineConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a compiled-expression cache.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *machineConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry configures custom functions exposed to expression
// predicates. The registry is cloned.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *machineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithRetries sets the default per-edge retry budget for traversal.
func WithRetries(retries int) Option {
	return func(cfg *machineConfig) {
		if retries > 0 {
			cfg.retries = retries
		}
	}
}

// WithJournalHooks attaches hooks notified of navigation events. Hooks are
// cloned and nil entries dropped.
func WithJournalHooks(hooks journal.Hooks) Option {
	normalized := cloneJournalHooks(hooks)
	return func(cfg *machineConfig) {
		cfg.hooks = normalized
	}
}

// WithSessionStore wires a session store used by RestoreSession/SaveSession
// to carry the cached position across processes.
func WithSessionStore(store session.Store, ref session.Ref) Option {
	return func(cfg *machineConfig) {
		cfg.store = store
		cfg.storeRef = ref
	}
}

// Driver exposes the page driver the machine was constructed with.
func (m *Machine) Driver() PageDriver {
	return m.driver
}

// CurrentState returns the cached current base state, or UnknownState when no
// classification has happened yet (or the last one found nothing).
func (m *Machine) CurrentState() string {
	if m.current == "" {
		return UnknownState
	}
	return m.current
}

// InvalidateState drops the cached current state so the next classification
// performs a full priority scan.
func (m *Machine) InvalidateState() {
	m.current = ""
}

func (m *Machine) navLogger() NavigationLogger {
	if m.cfg.navLogger != nil {
		return m.cfg.navLogger
	}
	return noopNavigationLogger{}
}

func (m *Machine) emit(ctx context.Context, event journal.Event) {
	if !m.cfg.hooks.Enabled() {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	// Hook failures never interrupt navigation.
	_ = m.cfg.hooks.Notify(ctx, event)
}

func cloneJournalHooks(hooks journal.Hooks) journal.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]journal.Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return journal.Hooks(normalized)
}
