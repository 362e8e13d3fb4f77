package pagestate

// ProgramCache stores compiled expression programs keyed by expression
// strings. Useful when the same predicate expressions are evaluated on every
// classification pass.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
