package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// schema defines the three logical collections. Versions are indexed by
// owning project and by timestamp for retention queries.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    markup         TEXT NOT NULL,
    styles         TEXT NOT NULL,
    script         TEXT NOT NULL,
    typescript     TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,
    use_tailwind   INTEGER NOT NULL DEFAULT 0,
    use_typescript INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);

CREATE TABLE IF NOT EXISTS versions (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    markup     TEXT NOT NULL,
    styles     TEXT NOT NULL,
    script     TEXT NOT NULL,
    typescript TEXT NOT NULL DEFAULT '',
    timestamp  INTEGER NOT NULL,
    label      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_versions_project ON versions(project_id);
CREATE INDEX IF NOT EXISTS idx_versions_timestamp ON versions(timestamp);

CREATE TABLE IF NOT EXISTS settings (
    id   TEXT PRIMARY KEY,
    data TEXT NOT NULL
);
`

// SQLite is the durable Store implementation.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Open failures are reported as ErrUnavailable.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// The driver is wasm-backed; a single writer avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrUnavailable, err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetAllProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, markup, styles, script, typescript,
		       created_at, updated_at, use_tailwind, use_typescript
		FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list projects: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLite) GetProject(ctx context.Context, id string) (types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, markup, styles, script, typescript,
		       created_at, updated_at, use_tailwind, use_typescript
		FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *SQLite) SaveProject(ctx context.Context, p types.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, markup, styles, script, typescript,
		                      created_at, updated_at, use_tailwind, use_typescript)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    markup = excluded.markup,
		    styles = excluded.styles,
		    script = excluded.script,
		    typescript = excluded.typescript,
		    created_at = excluded.created_at,
		    updated_at = excluded.updated_at,
		    use_tailwind = excluded.use_tailwind,
		    use_typescript = excluded.use_typescript`,
		p.ID, p.Name, p.Files.Markup, p.Files.Styles, p.Files.Script, p.Files.TypeScript,
		p.CreatedAt, p.UpdatedAt, boolToInt(p.UseTailwind), boolToInt(p.UseTypeScript))
	if err != nil {
		return fmt.Errorf("%w: save project: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteProject removes the project and all its versions in one transaction
// so an interruption never leaves orphaned versions.
func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete project: %v", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete versions: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) GetVersions(ctx context.Context, projectID string) ([]types.VersionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, markup, styles, script, typescript, timestamp, label
		FROM versions WHERE project_id = ?
		ORDER BY timestamp DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	versions := []types.VersionEntry{}
	for rows.Next() {
		var v types.VersionEntry
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Files.Markup, &v.Files.Styles,
			&v.Files.Script, &v.Files.TypeScript, &v.Timestamp, &v.Label); err != nil {
			return nil, fmt.Errorf("%w: scan version: %v", ErrUnavailable, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SaveVersion upserts the entry and trims the project's history beyond the
// retention cap inside the same transaction, keeping the cap an always
// observable invariant.
func (s *SQLite) SaveVersion(ctx context.Context, v types.VersionEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin save version: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO versions (id, project_id, markup, styles, script, typescript, timestamp, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    project_id = excluded.project_id,
		    markup = excluded.markup,
		    styles = excluded.styles,
		    script = excluded.script,
		    typescript = excluded.typescript,
		    timestamp = excluded.timestamp,
		    label = excluded.label`,
		v.ID, v.ProjectID, v.Files.Markup, v.Files.Styles, v.Files.Script,
		v.Files.TypeScript, v.Timestamp, v.Label); err != nil {
		return fmt.Errorf("%w: save version: %v", ErrUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM versions WHERE project_id = ? AND id NOT IN (
		    SELECT id FROM versions WHERE project_id = ?
		    ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, v.ProjectID, v.ProjectID, MaxVersionsPerProject); err != nil {
		return fmt.Errorf("%w: trim versions: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit save version: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) DeleteVersion(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete version: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) LoadSettings(ctx context.Context) (types.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM settings WHERE id = ?`, SettingsKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DefaultSettings(), nil
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("%w: load settings: %v", ErrUnavailable, err)
	}

	var s2 types.Settings
	if err := json.Unmarshal([]byte(data), &s2); err != nil {
		return types.Settings{}, fmt.Errorf("%w: decode settings: %v", ErrUnavailable, err)
	}
	return s2, nil
}

func (s *SQLite) SaveSettings(ctx context.Context, settings types.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		SettingsKey, string(data)); err != nil {
		return fmt.Errorf("%w: save settings: %v", ErrUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (types.Project, error) {
	var p types.Project
	var tailwind, typescript int
	err := row.Scan(&p.ID, &p.Name, &p.Files.Markup, &p.Files.Styles, &p.Files.Script,
		&p.Files.TypeScript, &p.CreatedAt, &p.UpdatedAt, &tailwind, &typescript)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("%w: scan project: %v", ErrUnavailable, err)
	}
	p.UseTailwind = tailwind != 0
	p.UseTypeScript = typescript != 0
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
