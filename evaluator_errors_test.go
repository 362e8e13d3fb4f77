package pagestate

import (
	"errors"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", `url && missing`, "listing", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != `url && missing` {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.State != "listing" {
		t.Fatalf("expected state metadata, got %q", evalErr.State)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "listing", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.State != "listing" {
		t.Fatalf("state should be filled, got %q", existing.State)
	}
}

func TestWrapEvaluationErrorNil(t *testing.T) {
	if err := wrapEvaluationError("expr", "rule", "listing", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapEvaluatorErrorSkipsPrefixed(t *testing.T) {
	prefixed := errors.New("pagestate: already wrapped")
	if err := wrapEvaluatorError("expr", prefixed); err != prefixed {
		t.Fatalf("expected prefixed error untouched, got %v", err)
	}

	plain := errors.New("raw failure")
	err := wrapEvaluatorError("cel", plain)
	if !errors.Is(err, plain) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if err == plain {
		t.Fatalf("expected wrapping for unprefixed error")
	}
}

func TestEvaluationErrorMessage(t *testing.T) {
	err := &EvaluationError{
		Engine: "expr",
		Expr:   "",
		State:  "listing",
		Err:    errors.New("boom"),
	}
	want := "pagestate: expr evaluator expr=<empty> state=listing: boom"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
