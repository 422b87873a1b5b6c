package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webpadhq/webpad/internal/console"
	"github.com/webpadhq/webpad/internal/history"
	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/infrastructure/monitoring"
	"github.com/webpadhq/webpad/internal/preview"
	"github.com/webpadhq/webpad/internal/shared/id"
	"github.com/webpadhq/webpad/internal/shared/types"
	"github.com/webpadhq/webpad/internal/store"
)

const (
	// AutoSaveDelay is the quiet period before an edit is auto-saved.
	AutoSaveDelay = 30 * time.Second
	// AutoRunDelay is the quiet period before an edit re-runs the preview.
	AutoRunDelay = 800 * time.Millisecond

	// DefaultProjectName names freshly created blank projects.
	DefaultProjectName = "Untitled Project"

	saveTimeout = 10 * time.Second
)

// Notice is a user-facing message about a degraded operation, typically a
// persistence failure the session survived.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NoticeFunc observes notices.
type NoticeFunc func(Notice)

// DocumentFunc observes freshly rendered preview documents.
type DocumentFunc func(doc string, channelID string)

// Manager is the live editing session: the open project, its working
// files, the dirty flag, cached snapshots, and the debounced automation
// that ties edits to persistence and preview runs.
//
// Subscriber callbacks run outside the session lock, on the goroutine
// that performed the mutation.
type Manager struct {
	store   store.Store
	history *history.Manager
	engine  *preview.Engine
	bridge  *console.Bridge
	ids     *id.Generator
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu        sync.Mutex
	project   types.Project
	files     types.EditorFiles
	dirty     bool
	settings  types.Settings
	versions  []types.VersionEntry
	channel   string
	autoRunOn bool

	autoSave *Debouncer
	autoRun  *Debouncer

	noticeSubs []NoticeFunc
	docSubs    []DocumentFunc

	now     func() time.Time
	newChan func() string
}

// NewManager assembles a session. metrics may be nil.
func NewManager(s store.Store, hist *history.Manager, engine *preview.Engine, bridge *console.Bridge, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:     s,
		history:   hist,
		engine:    engine,
		bridge:    bridge,
		ids:       id.Default(),
		logger:    logger,
		metrics:   metrics,
		settings:  types.DefaultSettings(),
		autoSave:  NewDebouncer(AutoSaveDelay),
		autoRun:   NewDebouncer(AutoRunDelay),
		autoRunOn: true,
		now:       time.Now,
		newChan:   uuid.NewString,
	}
}

// WithDebounce overrides the automation delays. Used in tests.
func (m *Manager) WithDebounce(save, run time.Duration) *Manager {
	m.autoSave = NewDebouncer(save)
	m.autoRun = NewDebouncer(run)
	return m
}

// WithClock overrides the clock. Used in tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// OnNotice registers a notice observer.
func (m *Manager) OnNotice(fn NoticeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noticeSubs = append(m.noticeSubs, fn)
}

// OnDocument registers an observer for rendered preview documents.
func (m *Manager) OnDocument(fn DocumentFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docSubs = append(m.docSubs, fn)
}

// Init loads settings and opens the most recently updated project, or
// creates a blank one when the store is empty. A storage failure degrades
// to in-memory defaults with a notice; Init itself never fails.
func (m *Manager) Init(ctx context.Context) {
	var notices []Notice

	m.mu.Lock()

	settings, err := m.store.LoadSettings(ctx)
	if err != nil {
		m.logger.Warn("settings load failed", zap.Error(err))
		settings = types.DefaultSettings()
		notices = append(notices, Notice{
			Level:   "warn",
			Message: "Settings could not be loaded; using defaults.",
		})
	}
	m.settings = settings

	projects, err := m.store.GetAllProjects(ctx)
	if err != nil {
		m.logger.Warn("project list failed", zap.Error(err))
		notices = append(notices, Notice{
			Level:   "warn",
			Message: "Saved projects could not be loaded; starting fresh.",
		})
	}

	if len(projects) > 0 {
		m.adoptLocked(projects[0])
		m.refreshVersionsLocked(ctx)
	} else {
		notices = append(notices, m.createBlankLocked(ctx, DefaultProjectName)...)
	}

	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitNotices(notices)
	m.emitDocument(doc, ch)
}

// Project returns the open project record. Its Files field is the last
// persisted state; use WorkingFiles for the live copy.
func (m *Manager) Project() types.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.project
}

// WorkingFiles returns the live working copy.
func (m *Manager) WorkingFiles() types.EditorFiles {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files.Clone()
}

// Dirty reports whether the working copy has unsaved edits.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// ActiveChannel returns the channel of the latest preview run.
func (m *Manager) ActiveChannel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel
}

// Settings returns the current editor preferences.
func (m *Manager) Settings() types.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateFile replaces one working file and schedules the debounced
// auto-save and preview re-run.
func (m *Manager) UpdateFile(lang types.Language, content string) {
	m.mu.Lock()
	m.files.Set(lang, content)
	m.dirty = true
	autoSaveOn := m.settings.AutoSave
	autoRunOn := m.autoRunOn
	m.mu.Unlock()

	if autoSaveOn {
		m.autoSave.Trigger(m.backgroundSave)
	}
	if autoRunOn {
		m.autoRun.Trigger(func() { m.Run() })
	}
}

// Run launches a fresh preview of the working files. It mints a new
// channel, activates it on the console bridge, and returns the rendered
// document along with the channel identifier.
func (m *Manager) Run() (string, string) {
	m.mu.Lock()
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitDocument(doc, ch)
	return doc, ch
}

// Save persists the working copy into the project record. The dirty flag
// clears only on success; on failure the working copy and flag survive
// and subscribers get a notice.
func (m *Manager) Save(ctx context.Context) error {
	m.autoSave.Cancel()

	m.mu.Lock()
	notices, err := m.saveLocked(ctx)
	m.mu.Unlock()

	m.emitNotices(notices)
	return err
}

// Snapshot saves the working copy, then captures it as a version entry.
func (m *Manager) Snapshot(ctx context.Context, label string) (types.VersionEntry, error) {
	m.autoSave.Cancel()

	m.mu.Lock()
	notices, err := m.saveLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		m.emitNotices(notices)
		return types.VersionEntry{}, err
	}

	entry, err := m.history.CreateVersion(ctx, m.project.ID, m.files, label)
	if err != nil {
		m.mu.Unlock()
		notices = append(notices, Notice{
			Level:   "error",
			Message: "Snapshot could not be saved.",
		})
		m.emitNotices(notices)
		return types.VersionEntry{}, err
	}

	m.versions = append([]types.VersionEntry{entry}, m.versions...)
	if len(m.versions) > store.MaxVersionsPerProject {
		m.versions = m.versions[:store.MaxVersionsPerProject]
	}
	if m.metrics != nil {
		m.metrics.SnapshotsCreated.Inc()
	}
	m.mu.Unlock()

	m.emitNotices(notices)
	return entry, nil
}

// Versions returns the open project's snapshots, newest first, refreshing
// the cache from the store.
func (m *Manager) Versions(ctx context.Context) ([]types.VersionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refreshVersionsLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]types.VersionEntry, len(m.versions))
	copy(out, m.versions)
	return out, nil
}

// RestoreVersion loads a snapshot's files into the working copy and
// re-runs the preview. Nothing is persisted: the restore is an unsaved
// edit until the user saves.
func (m *Manager) RestoreVersion(ctx context.Context, versionID string) error {
	m.mu.Lock()

	entry, ok := m.findVersionLocked(versionID)
	if !ok {
		if err := m.refreshVersionsLocked(ctx); err != nil {
			m.mu.Unlock()
			return err
		}
		entry, ok = m.findVersionLocked(versionID)
	}
	if !ok {
		m.mu.Unlock()
		return store.ErrNotFound
	}

	m.files = entry.Files.Clone()
	m.dirty = true
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitDocument(doc, ch)
	return nil
}

// RemoveVersion deletes a single snapshot and drops it from the cache.
func (m *Manager) RemoveVersion(ctx context.Context, versionID string) error {
	if err := m.history.RemoveVersion(ctx, versionID); err != nil {
		m.emitNotices([]Notice{{
			Level:   "error",
			Message: "Snapshot could not be deleted.",
		}})
		return err
	}

	m.mu.Lock()
	for i, v := range m.versions {
		if v.ID == versionID {
			m.versions = append(m.versions[:i], m.versions[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// Projects lists every stored project, most recently updated first.
func (m *Manager) Projects(ctx context.Context) ([]types.Project, error) {
	return m.store.GetAllProjects(ctx)
}

// NewProject saves the current work, then creates and opens a blank
// project.
func (m *Manager) NewProject(ctx context.Context, name string) types.Project {
	m.flushDirty(ctx)

	if name == "" {
		name = DefaultProjectName
	}

	m.mu.Lock()
	notices := m.createBlankLocked(ctx, name)
	doc, ch := m.runLocked()
	p := m.project
	m.mu.Unlock()

	m.emitNotices(notices)
	m.emitDocument(doc, ch)
	return p
}

// ImportProject creates and opens a project seeded with the given files,
// typically decoded from a share payload.
func (m *Manager) ImportProject(ctx context.Context, name string, files types.EditorFiles, useTailwind bool) types.Project {
	m.flushDirty(ctx)

	if name == "" {
		name = DefaultProjectName
	}

	m.mu.Lock()
	ts := m.now().UnixMilli()
	p := types.Project{
		ID:          m.ids.NewProjectID(),
		Name:        name,
		Files:       files.Clone(),
		CreatedAt:   ts,
		UpdatedAt:   ts,
		UseTailwind: useTailwind,
	}

	var notices []Notice
	if err := m.store.SaveProject(ctx, p); err != nil {
		m.logger.Warn("imported project save failed", zap.Error(err))
		notices = append(notices, Notice{
			Level:   "warn",
			Message: "Imported project could not be saved; it lives in memory only.",
		})
	}

	m.adoptLocked(p)
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitNotices(notices)
	m.emitDocument(doc, ch)
	return p
}

// LoadProject saves the current work, then opens another stored project.
func (m *Manager) LoadProject(ctx context.Context, projectID string) error {
	m.flushDirty(ctx)

	p, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.adoptLocked(p)
	m.refreshVersionsLocked(ctx)
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitDocument(doc, ch)
	return nil
}

// DeleteProject removes a project and all its snapshots. Deleting the
// open project falls back to the most recently updated survivor, or to a
// fresh blank project when none remain.
func (m *Manager) DeleteProject(ctx context.Context, projectID string) error {
	if err := m.store.DeleteProject(ctx, projectID); err != nil {
		m.emitNotices([]Notice{{
			Level:   "error",
			Message: "Project could not be deleted.",
		}})
		return err
	}

	m.mu.Lock()
	if m.project.ID != projectID {
		m.mu.Unlock()
		return nil
	}

	var notices []Notice
	m.versions = nil
	remaining, err := m.store.GetAllProjects(ctx)
	if err != nil {
		m.logger.Warn("project list failed after delete", zap.Error(err))
	}
	if len(remaining) > 0 {
		m.adoptLocked(remaining[0])
		m.refreshVersionsLocked(ctx)
	} else {
		notices = m.createBlankLocked(ctx, DefaultProjectName)
	}
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitNotices(notices)
	m.emitDocument(doc, ch)
	return nil
}

// Rename renames the open project and persists it together with the
// working files.
func (m *Manager) Rename(ctx context.Context, name string) error {
	m.mu.Lock()
	m.project.Name = name
	notices, err := m.saveLocked(ctx)
	m.mu.Unlock()

	m.emitNotices(notices)
	return err
}

// SetTailwind toggles the utility-CSS flag, persists it, and re-runs the
// preview so the change is visible immediately.
func (m *Manager) SetTailwind(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	m.project.UseTailwind = enabled
	notices, err := m.saveLocked(ctx)
	doc, ch := m.runLocked()
	m.mu.Unlock()

	m.emitNotices(notices)
	m.emitDocument(doc, ch)
	return err
}

// SetAutoRun toggles the debounced preview re-run on edits. Disabling it
// cancels any pending run; a manual Run still works either way.
func (m *Manager) SetAutoRun(enabled bool) {
	m.mu.Lock()
	m.autoRunOn = enabled
	m.mu.Unlock()

	if !enabled {
		m.autoRun.Cancel()
	}
}

// AutoRun reports whether edits schedule preview re-runs.
func (m *Manager) AutoRun() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoRunOn
}

// SetTypeScript toggles the typed-script flag and persists it.
func (m *Manager) SetTypeScript(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	m.project.UseTypeScript = enabled
	notices, err := m.saveLocked(ctx)
	m.mu.Unlock()

	m.emitNotices(notices)
	return err
}

// UpdateSettings applies preferences immediately and persists them
// last-write-wins. A persistence failure keeps the in-memory settings and
// raises a notice.
func (m *Manager) UpdateSettings(ctx context.Context, s types.Settings) error {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()

	if err := m.store.SaveSettings(ctx, s); err != nil {
		m.logger.Warn("settings save failed", zap.Error(err))
		m.emitNotices([]Notice{{
			Level:   "warn",
			Message: "Settings could not be saved; they apply until restart.",
		}})
		return err
	}
	return nil
}

// ClearConsole empties the console log.
func (m *Manager) ClearConsole() {
	m.bridge.Clear()
}

// Close cancels pending automation.
func (m *Manager) Close() {
	m.autoSave.Cancel()
	m.autoRun.Cancel()
}

// adoptLocked replaces the whole working set. Every project switch routes
// through here, so the version cache and console log never leak across
// projects.
func (m *Manager) adoptLocked(p types.Project) {
	m.project = p
	m.files = p.Files.Clone()
	m.dirty = false
	m.versions = nil
	m.bridge.Clear()
}

func (m *Manager) createBlankLocked(ctx context.Context, name string) []Notice {
	ts := m.now().UnixMilli()
	p := types.Project{
		ID:        m.ids.NewProjectID(),
		Name:      name,
		Files:     types.DefaultFiles(),
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	var notices []Notice
	if err := m.store.SaveProject(ctx, p); err != nil {
		m.logger.Warn("blank project save failed", zap.Error(err))
		notices = append(notices, Notice{
			Level:   "warn",
			Message: "New project could not be saved; it lives in memory only.",
		})
	}

	m.adoptLocked(p)
	return notices
}

func (m *Manager) saveLocked(ctx context.Context) ([]Notice, error) {
	p := m.project
	p.Files = m.files.Clone()
	p.UpdatedAt = m.now().UnixMilli()

	if err := m.store.SaveProject(ctx, p); err != nil {
		m.logger.Warn("project save failed",
			zap.String("project_id", p.ID),
			zap.Error(err))
		return []Notice{{
			Level:   "error",
			Message: "Your work could not be saved. Edits are kept in memory.",
		}}, err
	}

	m.project = p
	m.dirty = false
	if m.metrics != nil {
		m.metrics.ProjectsSaved.Inc()
	}
	return nil, nil
}

func (m *Manager) runLocked() (string, string) {
	channel := m.newChan()
	m.channel = channel
	m.bridge.Activate(channel)
	doc := m.engine.Launch(m.files, m.project.UseTailwind, channel)
	return doc, channel
}

func (m *Manager) refreshVersionsLocked(ctx context.Context) error {
	versions, err := m.history.ProjectVersions(ctx, m.project.ID)
	if err != nil {
		m.logger.Warn("version list failed",
			zap.String("project_id", m.project.ID),
			zap.Error(err))
		return err
	}
	m.versions = versions
	return nil
}

func (m *Manager) findVersionLocked(versionID string) (types.VersionEntry, bool) {
	for _, v := range m.versions {
		if v.ID == versionID {
			return v, true
		}
	}
	return types.VersionEntry{}, false
}

func (m *Manager) flushDirty(ctx context.Context) {
	m.mu.Lock()
	dirty := m.dirty
	m.mu.Unlock()
	if dirty {
		m.Save(ctx)
	}
}

func (m *Manager) backgroundSave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	m.Save(ctx)
}

func (m *Manager) emitNotices(notices []Notice) {
	if len(notices) == 0 {
		return
	}
	m.mu.Lock()
	subs := append([]NoticeFunc{}, m.noticeSubs...)
	m.mu.Unlock()
	for _, n := range notices {
		for _, fn := range subs {
			fn(n)
		}
	}
}

func (m *Manager) emitDocument(doc, channelID string) {
	m.mu.Lock()
	subs := append([]DocumentFunc{}, m.docSubs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(doc, channelID)
	}
}
