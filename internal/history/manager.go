// Package history turns working files into durable, timestamped snapshots.
//
// The manager owns id and timestamp allocation and nothing else; durability
// belongs to the store. Correctness here means snapshots are exact,
// independent copies, never aliases of mutable working state.
package history

import (
	"context"
	"time"

	"github.com/webpadhq/webpad/internal/shared/id"
	"github.com/webpadhq/webpad/internal/shared/types"
	"github.com/webpadhq/webpad/internal/store"
)

// Manager creates and queries version snapshots.
type Manager struct {
	store store.Store
	ids   *id.Generator
	now   func() time.Time
}

// NewManager creates a history manager on top of the given store.
func NewManager(s store.Store) *Manager {
	return &Manager{
		store: s,
		ids:   id.Default(),
		now:   time.Now,
	}
}

// WithClock overrides the clock. Used in tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CreateVersion captures the files bundle into a new immutable snapshot and
// persists it. The bundle is copied, so later mutation of the caller's
// working files cannot corrupt the stored entry.
func (m *Manager) CreateVersion(ctx context.Context, projectID string, files types.EditorFiles, label string) (types.VersionEntry, error) {
	ts := m.now().UnixMilli()
	if label == "" {
		label = FormatLabel(ts)
	}
	entry := types.VersionEntry{
		ID:        m.ids.GenerateWithPrefix(id.VersionPrefix),
		ProjectID: projectID,
		Files:     files.Clone(),
		Timestamp: ts,
		Label:     label,
	}

	if err := m.store.SaveVersion(ctx, entry); err != nil {
		return types.VersionEntry{}, err
	}
	return entry, nil
}

// ProjectVersions returns the project's snapshots, newest first.
func (m *Manager) ProjectVersions(ctx context.Context, projectID string) ([]types.VersionEntry, error) {
	return m.store.GetVersions(ctx, projectID)
}

// RemoveVersion deletes a single snapshot.
func (m *Manager) RemoveVersion(ctx context.Context, versionID string) error {
	return m.store.DeleteVersion(ctx, versionID)
}

// FormatLabel renders a timestamp as a short human-readable label for
// snapshots created without one.
func FormatLabel(timestamp int64) string {
	return time.UnixMilli(timestamp).Format("Jan 2, 15:04")
}
