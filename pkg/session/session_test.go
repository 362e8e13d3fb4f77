package session

import (
	"context"
	"errors"
	"testing"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     Ref
		want    string
		wantErr bool
	}{
		{name: "site and profile", ref: Ref{Site: "shop.example", Profile: "crawler"}, want: "shop.example/crawler"},
		{name: "profile defaults", ref: Ref{Site: "shop.example"}, want: "shop.example/default"},
		{name: "whitespace trimmed", ref: Ref{Site: " shop.example ", Profile: " qa "}, want: "shop.example/qa"},
		{name: "missing site", ref: Ref{Profile: "qa"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSnapshotClone(t *testing.T) {
	original := Snapshot{
		CurrentState: "listing",
		LayerValues:  map[string]string{"menu": "open"},
	}
	clone := original.Clone()
	clone.LayerValues["menu"] = "closed"
	if original.LayerValues["menu"] != "open" {
		t.Fatalf("clone shares layer values with original")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ref := Ref{Site: "shop.example"}
	ctx := context.Background()

	if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	snapshot := Snapshot{CurrentState: "listing", LayerValues: map[string]string{"menu": "open"}}
	meta, err := store.Save(ctx, ref, snapshot, Meta{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SnapshotID == "" || meta.ETag == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("expected minted metadata, got %+v", meta)
	}

	loaded, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if loaded.CurrentState != "listing" || loaded.LayerValues["menu"] != "open" {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}
	if loadedMeta.ETag != meta.ETag {
		t.Fatalf("expected stored etag %q, got %q", meta.ETag, loadedMeta.ETag)
	}

	// Mutating the loaded snapshot must not touch the stored record.
	loaded.LayerValues["menu"] = "closed"
	reloaded, _, _, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.LayerValues["menu"] != "open" {
		t.Fatalf("store leaked internal state")
	}
}

func TestMemoryStoreETag(t *testing.T) {
	store := NewMemoryStore()
	ref := Ref{Site: "shop.example"}
	ctx := context.Background()

	first, err := store.Save(ctx, ref, Snapshot{CurrentState: "home"}, Meta{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Matching etag succeeds and rotates.
	second, err := store.Save(ctx, ref, Snapshot{CurrentState: "listing"}, Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("Save with matching etag: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("expected rotated etag")
	}

	// The stale etag is now rejected.
	_, err = store.Save(ctx, ref, Snapshot{CurrentState: "login"}, Meta{ETag: first.ETag})
	if !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}

	// An empty etag means "last write wins".
	if _, err := store.Save(ctx, ref, Snapshot{CurrentState: "login"}, Meta{}); err != nil {
		t.Fatalf("Save without etag: %v", err)
	}
}

func TestMemoryStoreKeepsExtra(t *testing.T) {
	store := NewMemoryStore()
	ref := Ref{Site: "shop.example"}
	ctx := context.Background()

	meta, err := store.Save(ctx, ref, Snapshot{CurrentState: "home"}, Meta{
		Extra: map[string]string{"agent": "crawler-7"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Extra["agent"] != "crawler-7" {
		t.Fatalf("expected extra preserved, got %+v", meta.Extra)
	}
}

func TestMemoryStoreInvalidRef(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, _, _, err := store.Load(ctx, Ref{}); err == nil {
		t.Fatalf("expected error for empty site on load")
	}
	if _, err := store.Save(ctx, Ref{}, Snapshot{}, Meta{}); err == nil {
		t.Fatalf("expected error for empty site on save")
	}
}
