package pagestate

import (
	"context"
	"testing"

	"github.com/goliatone/go-pagestate/pkg/session"
)

func sessionMachine(t *testing.T, driver *fakeDriver, opts ...Option) *Machine {
	t.Helper()
	m := New(driver, opts...)
	mustAddState(t, m, "listing", onPage("listing"))
	mustAddState(t, m, "detail", onPage("detail"))
	mustAddComposite(t, m, Fragment{"menu": "open"}, []string{"listing", "detail"}, flagIs("menu", "open"))
	mustAddComposite(t, m, Fragment{"menu": "closed"}, []string{"listing", "detail"}, flagIs("menu", "closed"))
	return m
}

func TestSessionRequiresStore(t *testing.T) {
	m := New(newFakeDriver("listing"))
	if err := m.RestoreSession(context.Background()); err == nil {
		t.Fatalf("expected error without a configured store")
	}
	if err := m.SaveSession(context.Background()); err == nil {
		t.Fatalf("expected error without a configured store")
	}
}

func TestSessionSaveAndRestore(t *testing.T) {
	store := session.NewMemoryStore()
	ref := session.Ref{Site: "shop.example"}
	ctx := context.Background()

	driver := newFakeDriver("listing")
	driver.flags["menu"] = "open"
	first := sessionMachine(t, driver, WithSessionStore(store, ref))
	if _, err := first.StateDetail(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.SaveSession(ctx); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// A fresh machine picks up the cached position without touching the page.
	second := sessionMachine(t, newFakeDriver("listing"), WithSessionStore(store, ref))
	if err := second.RestoreSession(ctx); err != nil {
		t.Fatalf("RestoreSession: %v", err)
	}
	if second.CurrentState() != "listing" {
		t.Fatalf("expected restored state listing, got %q", second.CurrentState())
	}
	if value, ok := second.LastKnown("menu"); !ok || value != "open" {
		t.Fatalf("expected restored menu=open, got %q/%v", value, ok)
	}
}

func TestSessionRestoreMissingRecordIsNoop(t *testing.T) {
	store := session.NewMemoryStore()
	m := sessionMachine(t, newFakeDriver("listing"), WithSessionStore(store, session.Ref{Site: "shop.example"}))

	if err := m.RestoreSession(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.CurrentState() != UnknownState {
		t.Fatalf("expected unknown state after empty restore, got %q", m.CurrentState())
	}
}

func TestSessionRestoreDiscardsStaleEntries(t *testing.T) {
	store := session.NewMemoryStore()
	ref := session.Ref{Site: "shop.example"}
	ctx := context.Background()

	// A snapshot from an older site map: the state and one layer value no
	// longer exist.
	if _, err := store.Save(ctx, ref, session.Snapshot{
		CurrentState: "checkout",
		LayerValues: map[string]string{
			"menu":   "open",
			"drawer": "expanded",
		},
	}, session.Meta{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m := sessionMachine(t, newFakeDriver("listing"), WithSessionStore(store, ref))
	if err := m.RestoreSession(ctx); err != nil {
		t.Fatalf("RestoreSession: %v", err)
	}
	if m.CurrentState() != UnknownState {
		t.Fatalf("expected stale state discarded, got %q", m.CurrentState())
	}
	if _, ok := m.LastKnown("drawer"); ok {
		t.Fatalf("expected stale layer discarded")
	}
	if value, ok := m.LastKnown("menu"); !ok || value != "open" {
		t.Fatalf("expected surviving layer restored, got %q/%v", value, ok)
	}
}

func TestSessionSaveRotatesMetadata(t *testing.T) {
	store := session.NewMemoryStore()
	ref := session.Ref{Site: "shop.example"}
	ctx := context.Background()

	driver := newFakeDriver("listing")
	driver.flags["menu"] = "open"
	m := sessionMachine(t, driver, WithSessionStore(store, ref))
	if _, err := m.StateDetail(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Consecutive saves from the same machine carry the rotated etag forward,
	// so the store's concurrency check keeps passing.
	if err := m.SaveSession(ctx); err != nil {
		t.Fatalf("first SaveSession: %v", err)
	}
	driver.flags["menu"] = "closed"
	if _, err := m.StateDetail(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SaveSession(ctx); err != nil {
		t.Fatalf("second SaveSession: %v", err)
	}

	snapshot, _, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if snapshot.LayerValues["menu"] != "closed" {
		t.Fatalf("expected latest layer value persisted, got %+v", snapshot)
	}
}
