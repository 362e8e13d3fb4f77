package pagestate

import (
	"context"
	"fmt"

	"github.com/goliatone/go-pagestate/pkg/session"
)

// RestoreSession seeds the cached current state and last-known layer values
// from the configured session store. Positions that no longer name a
// registered state are discarded rather than restored, since a stale cache is
// worse than a full classification pass.
func (m *Machine) RestoreSession(ctx context.Context) error {
	if m.cfg.store == nil {
		return fmt.Errorf("pagestate: session store not configured")
	}
	snapshot, meta, ok, err := m.cfg.store.Load(ctx, m.cfg.storeRef)
	if err != nil {
		return fmt.Errorf("pagestate: restore session: %w", err)
	}
	if !ok {
		return nil
	}
	m.sessionMeta = meta
	if _, registered := m.stateIndex[snapshot.CurrentState]; registered {
		m.current = snapshot.CurrentState
	}
	for layer, value := range snapshot.LayerValues {
		entry := m.layerIndex[layer]
		if entry == nil {
			continue
		}
		if _, declared := entry.values[value]; declared {
			m.lastKnown[layer] = value
		}
	}
	return nil
}

// SaveSession persists the cached current state and last-known layer values.
// The store's concurrency check runs against the metadata from the last
// restore or save.
func (m *Machine) SaveSession(ctx context.Context) error {
	if m.cfg.store == nil {
		return fmt.Errorf("pagestate: session store not configured")
	}
	values := make(map[string]string, len(m.lastKnown))
	for layer, value := range m.lastKnown {
		values[layer] = value
	}
	snapshot := session.Snapshot{
		CurrentState: m.current,
		LayerValues:  values,
	}
	meta, err := m.cfg.store.Save(ctx, m.cfg.storeRef, snapshot, m.sessionMeta)
	if err != nil {
		return fmt.Errorf("pagestate: save session: %w", err)
	}
	m.sessionMeta = meta
	return nil
}
