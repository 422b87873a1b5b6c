package store

import (
	"context"
	"errors"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// MaxVersionsPerProject is the retention cap enforced by SaveVersion.
const MaxVersionsPerProject = 50

// SettingsKey is the fixed key of the singleton settings record.
const SettingsKey = "global"

var (
	// ErrNotFound is returned when a requested project or version does not
	// exist. Callers treat it as "nothing to do".
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned when the durable engine cannot be opened or
	// accessed. All writes are idempotent upserts, so retrying is safe.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store abstracts the persistence engine (SQLite, memory).
type Store interface {
	// GetAllProjects returns every project sorted by updatedAt descending.
	// An empty store yields an empty slice, not an error.
	GetAllProjects(ctx context.Context) ([]types.Project, error)

	// GetProject returns the project or ErrNotFound.
	GetProject(ctx context.Context, id string) (types.Project, error)

	// SaveProject upserts by id, overwriting wholesale. The persisted
	// updatedAt is caller-supplied, never recomputed here.
	SaveProject(ctx context.Context, p types.Project) error

	// DeleteProject removes the project and every version owned by it as a
	// single atomic unit.
	DeleteProject(ctx context.Context, id string) error

	// GetVersions returns the project's versions sorted by timestamp
	// descending.
	GetVersions(ctx context.Context, projectID string) ([]types.VersionEntry, error)

	// SaveVersion upserts the entry, then trims the project's versions to
	// the MaxVersionsPerProject most recent in the same atomic unit.
	SaveVersion(ctx context.Context, v types.VersionEntry) error

	// DeleteVersion removes a single version entry.
	DeleteVersion(ctx context.Context, id string) error

	// LoadSettings returns the singleton settings record, or the hardcoded
	// defaults when none has been saved yet. It never returns ErrNotFound.
	LoadSettings(ctx context.Context) (types.Settings, error)

	// SaveSettings writes the singleton settings record (last-write-wins).
	SaveSettings(ctx context.Context, s types.Settings) error

	Close() error
}
