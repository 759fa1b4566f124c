// Package settings defines the consumed interface to the surrounding
// application's settings store. The store owns persistence, legacy-format
// reconciliation, and schema migration; this package only describes the
// shape the pipeline reads.
package settings

import (
	"context"

	"github.com/glyphic-ai/genflow/providers"
)

// Snapshot is the current, version-normalized settings object: a
// flattened, enabled-filtered sequence of resolved provider configs plus
// the default generation settings.
type Snapshot struct {
	Providers []providers.ResolvedConfig
	Defaults  providers.Settings
}

// Store yields the current settings. Implementations must return an
// already-reconciled snapshot; callers re-read it per top-level request
// and never write back.
type Store interface {
	Current(ctx context.Context) (*Snapshot, error)
}

// StaticStore is an in-memory Store for tests and standalone binaries.
type StaticStore struct {
	snapshot Snapshot
}

// NewStaticStore creates a store serving a fixed snapshot. Disabled
// provider configs are filtered out, matching the contract a real store
// honors.
func NewStaticStore(snapshot Snapshot) *StaticStore {
	enabled := make([]providers.ResolvedConfig, 0, len(snapshot.Providers))
	for _, p := range snapshot.Providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	snapshot.Providers = enabled
	return &StaticStore{snapshot: snapshot}
}

// Current returns the fixed snapshot.
func (s *StaticStore) Current(context.Context) (*Snapshot, error) {
	snap := s.snapshot
	snap.Providers = append([]providers.ResolvedConfig(nil), s.snapshot.Providers...)
	return &snap, nil
}
