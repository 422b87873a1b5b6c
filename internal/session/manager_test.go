package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpadhq/webpad/internal/console"
	"github.com/webpadhq/webpad/internal/history"
	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/preview"
	"github.com/webpadhq/webpad/internal/preview/sandbox"
	"github.com/webpadhq/webpad/internal/shared/types"
	"github.com/webpadhq/webpad/internal/store"
)

// flakyStore wraps a real store and fails selected writes on demand.
type flakyStore struct {
	store.Store
	failProjectSaves bool
	failSettingSaves bool
}

func (f *flakyStore) SaveProject(ctx context.Context, p types.Project) error {
	if f.failProjectSaves {
		return store.ErrUnavailable
	}
	return f.Store.SaveProject(ctx, p)
}

func (f *flakyStore) SaveSettings(ctx context.Context, s types.Settings) error {
	if f.failSettingSaves {
		return store.ErrUnavailable
	}
	return f.Store.SaveSettings(ctx, s)
}

func newTestManager(t *testing.T, s store.Store) (*Manager, *console.Bridge) {
	t.Helper()

	cfg := sandbox.DefaultConfig()
	cfg.Timeout = 2 * time.Second

	bridge := console.NewBridge(logging.NewNop(), nil)
	engine := preview.NewEngine(cfg, logging.NewNop(), nil)
	engine.SetEmit(func(p map[string]interface{}) { bridge.Deliver(p) })

	m := NewManager(s, history.NewManager(s), engine, bridge, logging.NewNop(), nil)
	t.Cleanup(m.Close)
	return m, bridge
}

func seedProject(t *testing.T, s store.Store, name string, updatedAt int64) types.Project {
	t.Helper()
	p := types.Project{
		ID:        "proj_" + name,
		Name:      name,
		Files:     types.DefaultFiles(),
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	require.NoError(t, s.SaveProject(context.Background(), p))
	return p
}

func TestInitCreatesBlankProject(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)

	m.Init(context.Background())

	p := m.Project()
	assert.Equal(t, DefaultProjectName, p.Name)
	assert.NotEmpty(t, p.ID)
	assert.False(t, m.Dirty())
	assert.NotEmpty(t, m.ActiveChannel())

	stored, err := s.GetAllProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, p.ID, stored[0].ID)
	assert.Equal(t, types.DefaultFiles(), stored[0].Files)
}

func TestInitOpensMostRecentProject(t *testing.T) {
	s := store.NewMemory()
	seedProject(t, s, "older", 1000)
	newer := seedProject(t, s, "newer", 2000)

	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	assert.Equal(t, newer.ID, m.Project().ID)
}

func TestUpdateFileDebouncesSaveAndRun(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.WithDebounce(50*time.Millisecond, 20*time.Millisecond)
	m.Init(context.Background())

	before := m.ActiveChannel()
	m.UpdateFile(types.LangMarkup, "<h1>edited</h1>")
	assert.True(t, m.Dirty())

	// Auto-run mints a fresh channel.
	require.Eventually(t, func() bool {
		return m.ActiveChannel() != before
	}, 2*time.Second, 5*time.Millisecond)

	// Auto-save persists and clears the dirty flag.
	require.Eventually(t, func() bool {
		return !m.Dirty()
	}, 2*time.Second, 5*time.Millisecond)

	stored, err := s.GetProject(context.Background(), m.Project().ID)
	require.NoError(t, err)
	assert.Equal(t, "<h1>edited</h1>", stored.Files.Markup)
}

func TestUpdateFileCoalescesRuns(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.WithDebounce(time.Hour, 50*time.Millisecond)
	m.Init(context.Background())

	before := m.ActiveChannel()
	for i := 0; i < 10; i++ {
		m.UpdateFile(types.LangScript, "console.log('edit')")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return m.ActiveChannel() != before
	}, 2*time.Second, 5*time.Millisecond)
	after := m.ActiveChannel()

	// The quiet period passes without further edits; no extra run fires.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, after, m.ActiveChannel())
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	mem := store.NewMemory()
	flaky := &flakyStore{Store: mem}
	m, _ := newTestManager(t, flaky)
	m.Init(context.Background())

	var notices []Notice
	m.OnNotice(func(n Notice) { notices = append(notices, n) })

	m.UpdateFile(types.LangStyles, "body { color: red; }")
	flaky.failProjectSaves = true

	err := m.Save(context.Background())
	require.Error(t, err)
	assert.True(t, m.Dirty())
	require.Len(t, notices, 1)
	assert.Equal(t, "error", notices[0].Level)

	flaky.failProjectSaves = false
	require.NoError(t, m.Save(context.Background()))
	assert.False(t, m.Dirty())
}

func TestSnapshotSavesThenCaptures(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	m.UpdateFile(types.LangMarkup, "<p>snapshot me</p>")
	entry, err := m.Snapshot(context.Background(), "first")
	require.NoError(t, err)

	assert.False(t, m.Dirty())
	assert.Equal(t, "first", entry.Label)
	assert.Equal(t, "<p>snapshot me</p>", entry.Files.Markup)

	versions, err := m.Versions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, entry.ID, versions[0].ID)

	stored, err := s.GetProject(context.Background(), m.Project().ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>snapshot me</p>", stored.Files.Markup)
}

func TestRestoreVersionIsUnsavedEdit(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	m.UpdateFile(types.LangMarkup, "<p>version A</p>")
	entry, err := m.Snapshot(context.Background(), "")
	require.NoError(t, err)

	m.UpdateFile(types.LangMarkup, "<p>version B</p>")
	require.NoError(t, m.Save(context.Background()))

	require.NoError(t, m.RestoreVersion(context.Background(), entry.ID))
	assert.Equal(t, "<p>version A</p>", m.WorkingFiles().Markup)
	assert.True(t, m.Dirty())

	// The persisted record is untouched until an explicit save.
	stored, err := s.GetProject(context.Background(), m.Project().ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>version B</p>", stored.Files.Markup)
}

func TestRestoreUnknownVersion(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	err := m.RestoreVersion(context.Background(), "ver_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveVersionDropsCache(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	entry, err := m.Snapshot(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, m.RemoveVersion(context.Background(), entry.ID))

	versions, err := m.Versions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)

	err = m.RestoreVersion(context.Background(), entry.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteOpenProjectFallsBack(t *testing.T) {
	s := store.NewMemory()
	other := seedProject(t, s, "other", 1000)
	current := seedProject(t, s, "current", 2000)

	m, _ := newTestManager(t, s)
	m.Init(context.Background())
	require.Equal(t, current.ID, m.Project().ID)

	require.NoError(t, m.DeleteProject(context.Background(), current.ID))
	assert.Equal(t, other.ID, m.Project().ID)

	// Deleting the last project creates a blank one.
	require.NoError(t, m.DeleteProject(context.Background(), other.ID))
	p := m.Project()
	assert.NotEqual(t, other.ID, p.ID)
	assert.Equal(t, DefaultProjectName, p.Name)
}

func TestDeleteOtherProjectKeepsSession(t *testing.T) {
	s := store.NewMemory()
	other := seedProject(t, s, "other", 1000)
	current := seedProject(t, s, "current", 2000)

	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	require.NoError(t, m.DeleteProject(context.Background(), other.ID))
	assert.Equal(t, current.ID, m.Project().ID)

	_, err := s.GetProject(context.Background(), other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenamePersists(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	require.NoError(t, m.Rename(context.Background(), "Landing Page"))
	assert.Equal(t, "Landing Page", m.Project().Name)

	stored, err := s.GetProject(context.Background(), m.Project().ID)
	require.NoError(t, err)
	assert.Equal(t, "Landing Page", stored.Name)
}

func TestSetTailwindRunsPreview(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.Init(context.Background())

	var lastDoc string
	m.OnDocument(func(doc, _ string) { lastDoc = doc })

	require.NoError(t, m.SetTailwind(context.Background(), true))
	assert.Contains(t, lastDoc, preview.TailwindCDN)
	assert.True(t, m.Project().UseTailwind)

	stored, err := s.GetProject(context.Background(), m.Project().ID)
	require.NoError(t, err)
	assert.True(t, stored.UseTailwind)
}

func TestUpdateSettings(t *testing.T) {
	mem := store.NewMemory()
	flaky := &flakyStore{Store: mem}
	m, _ := newTestManager(t, flaky)
	m.Init(context.Background())

	changed := types.DefaultSettings()
	changed.FontSize = 18
	require.NoError(t, m.UpdateSettings(context.Background(), changed))
	assert.Equal(t, 18, m.Settings().FontSize)

	stored, err := mem.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, stored.FontSize)

	// A failed persist keeps the in-memory value and raises a notice.
	var notices []Notice
	m.OnNotice(func(n Notice) { notices = append(notices, n) })
	flaky.failSettingSaves = true

	changed.FontSize = 20
	require.Error(t, m.UpdateSettings(context.Background(), changed))
	assert.Equal(t, 20, m.Settings().FontSize)
	require.Len(t, notices, 1)
}

func TestRunDeliversConsoleOutput(t *testing.T) {
	s := store.NewMemory()
	m, bridge := newTestManager(t, s)
	m.Init(context.Background())

	m.UpdateFile(types.LangScript, "console.log('live output')")
	_, ch := m.Run()
	assert.Equal(t, ch, bridge.ActiveChannel())

	require.Eventually(t, func() bool {
		for _, e := range bridge.Entries() {
			for _, a := range e.Args {
				if a == "live output" {
					return true
				}
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClearConsole(t *testing.T) {
	s := store.NewMemory()
	m, bridge := newTestManager(t, s)
	m.Init(context.Background())

	m.UpdateFile(types.LangScript, "console.log('x')")
	m.Run()

	require.Eventually(t, func() bool {
		return len(bridge.Entries()) > 0
	}, 5*time.Second, 10*time.Millisecond)

	m.ClearConsole()
	assert.Empty(t, bridge.Entries())
}

func TestProjectSwitchClearsConsole(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	quiet := types.EditorFiles{Markup: "<p>quiet</p>"}
	a := types.Project{ID: "proj_a", Name: "a", Files: quiet, CreatedAt: 1000, UpdatedAt: 2000}
	b := types.Project{ID: "proj_b", Name: "b", Files: quiet, CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, s.SaveProject(ctx, a))
	require.NoError(t, s.SaveProject(ctx, b))

	m, bridge := newTestManager(t, s)
	m.Init(ctx)

	bridge.Deliver(map[string]interface{}{
		"__webpadConsole": true,
		"channel":         m.ActiveChannel(),
		"level":           "log",
		"args":            []interface{}{"before switch"},
		"timestamp":       float64(1),
	})
	require.NotEmpty(t, bridge.Entries())

	require.NoError(t, m.LoadProject(ctx, b.ID))
	assert.Empty(t, bridge.Entries())
}

func TestAutoRunToggle(t *testing.T) {
	s := store.NewMemory()
	m, _ := newTestManager(t, s)
	m.WithDebounce(time.Hour, 20*time.Millisecond)
	m.Init(context.Background())

	before := m.ActiveChannel()
	m.UpdateFile(types.LangMarkup, "<h1>pending</h1>")
	m.SetAutoRun(false)
	assert.False(t, m.AutoRun())

	// The pending run is cancelled and edits stop scheduling new ones.
	m.UpdateFile(types.LangMarkup, "<h1>silent</h1>")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, m.ActiveChannel())

	m.SetAutoRun(true)
	m.UpdateFile(types.LangMarkup, "<h1>live again</h1>")
	require.Eventually(t, func() bool {
		return m.ActiveChannel() != before
	}, 5*time.Second, 10*time.Millisecond)
}
