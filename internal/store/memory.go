package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// Memory is an in-process Store. It backs tests and the degraded mode used
// when the durable engine cannot be opened: the session keeps working for
// the lifetime of the process, nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]types.Project
	versions map[string]types.VersionEntry
	settings *types.Settings
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]types.Project),
		versions: make(map[string]types.VersionEntry),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) GetAllProjects(ctx context.Context) ([]types.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]types.Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].UpdatedAt != projects[j].UpdatedAt {
			return projects[i].UpdatedAt > projects[j].UpdatedAt
		}
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

func (m *Memory) GetProject(ctx context.Context, id string) (types.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return types.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) SaveProject(ctx context.Context, p types.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.projects[p.ID] = p
	return nil
}

func (m *Memory) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.projects, id)
	for vid, v := range m.versions {
		if v.ProjectID == id {
			delete(m.versions, vid)
		}
	}
	return nil
}

func (m *Memory) GetVersions(ctx context.Context, projectID string) ([]types.VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versionsLocked(projectID), nil
}

// versionsLocked returns the project's versions newest first. Caller holds
// at least a read lock.
func (m *Memory) versionsLocked(projectID string) []types.VersionEntry {
	versions := []types.VersionEntry{}
	for _, v := range m.versions {
		if v.ProjectID == projectID {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].Timestamp != versions[j].Timestamp {
			return versions[i].Timestamp > versions[j].Timestamp
		}
		return versions[i].ID > versions[j].ID
	})
	return versions
}

func (m *Memory) SaveVersion(ctx context.Context, v types.VersionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.versions[v.ID] = v

	// Trim under the same lock so the cap is never observably exceeded.
	versions := m.versionsLocked(v.ProjectID)
	for i := MaxVersionsPerProject; i < len(versions); i++ {
		delete(m.versions, versions[i].ID)
	}
	return nil
}

func (m *Memory) DeleteVersion(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.versions, id)
	return nil
}

func (m *Memory) LoadSettings(ctx context.Context) (types.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return types.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *Memory) SaveSettings(ctx context.Context, s types.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = &s
	return nil
}
