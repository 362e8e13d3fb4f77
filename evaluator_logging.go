package pagestate

import "time"

// EvaluatorLogEvent describes one expression evaluation: which engine ran,
// against which machine state, and how it went.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	State    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger observes predicate evaluations.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a plain function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches logger to the machine. A nil logger silences
// evaluation logging.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *machineConfig) {
		if logger == nil {
			logger = noopEvaluatorLogger{}
		}
		cfg.evalLogger = logger
	}
}
