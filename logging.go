package pagestate

import "time"

// NavigationLogKind classifies a traversal log event.
type NavigationLogKind string

const (
	// LogTransitionOK records a step that landed in its declared end state.
	LogTransitionOK NavigationLogKind = "transition-ok"
	// LogNoTransition records an attempt after which the state was unchanged.
	LogNoTransition NavigationLogKind = "no-transition"
	// LogWrongState records an attempt that landed in an unexpected state.
	LogWrongState NavigationLogKind = "wrong-state"
	// LogTransitionError records transition logic that returned an error.
	LogTransitionError NavigationLogKind = "transition-error"
)

// NavigationLogEvent describes one traversal attempt for logging.
type NavigationLogEvent struct {
	Kind     NavigationLogKind
	From     Fragment
	To       Fragment
	Observed string
	Attempt  int
	Duration time.Duration
	Err      error
}

// NavigationLogger records traversal events.
type NavigationLogger interface {
	LogNavigation(NavigationLogEvent)
}

// NavigationLoggerFunc adapts a function to NavigationLogger.
type NavigationLoggerFunc func(NavigationLogEvent)

// LogNavigation implements NavigationLogger.
func (f NavigationLoggerFunc) LogNavigation(event NavigationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopNavigationLogger struct{}

func (noopNavigationLogger) LogNavigation(NavigationLogEvent) {}

// WithNavigationLogger attaches a traversal logger to the machine.
func WithNavigationLogger(logger NavigationLogger) Option {
	return func(cfg *machineConfig) {
		if logger == nil {
			cfg.navLogger = noopNavigationLogger{}
			return
		}
		cfg.navLogger = logger
	}
}
