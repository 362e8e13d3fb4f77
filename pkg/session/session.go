// Package session persists the last observed position of a state machine so
// long-running crawls and test suites can resume without re-classifying from
// scratch. A Snapshot holds exactly what the machine caches at runtime: the
// current base state and the last-known value per layer.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrETagMismatch signals a concurrent save against a stale snapshot.
var ErrETagMismatch = errors.New("session: etag mismatch")

// Ref identifies one persisted session for one site and profile.
type Ref struct {
	Site    string
	Profile string
}

// Identifier returns the deterministic storage key for the reference.
func (r Ref) Identifier() (string, error) {
	site := strings.TrimSpace(r.Site)
	if site == "" {
		return "", fmt.Errorf("session: site is required")
	}
	profile := strings.TrimSpace(r.Profile)
	if profile == "" {
		profile = "default"
	}
	return site + "/" + profile, nil
}

// Snapshot is the machine position worth carrying across processes.
type Snapshot struct {
	CurrentState string            `json:"current_state"`
	LayerValues  map[string]string `json:"layer_values,omitempty"`
}

// Clone returns a detached copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.LayerValues == nil {
		return out
	}
	out.LayerValues = make(map[string]string, len(s.LayerValues))
	for name, value := range s.LayerValues {
		out.LayerValues[name] = value
	}
	return out
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// NewMeta mints metadata for a fresh save.
func NewMeta() Meta {
	return Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  time.Now(),
	}
}

// Store loads/saves one snapshot for a single session reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}
