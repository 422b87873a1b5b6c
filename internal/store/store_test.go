package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// Both implementations must satisfy the same contract.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("EmptyListIsEmptySlice", func(t *testing.T) {
		s := open(t)
		projects, err := s.GetAllProjects(context.Background())
		require.NoError(t, err)
		assert.Empty(t, projects)
	})

	t.Run("GetProjectNotFound", func(t *testing.T) {
		s := open(t)
		_, err := s.GetProject(context.Background(), "proj_missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveAndGetProjectRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := types.Project{
			ID:            "proj_a",
			Name:          "Demo",
			Files:         types.EditorFiles{Markup: "<h1>hi</h1>", Styles: "h1{}", Script: "x()", TypeScript: "let x: number"},
			CreatedAt:     100,
			UpdatedAt:     200,
			UseTailwind:   true,
			UseTypeScript: true,
		}
		require.NoError(t, s.SaveProject(ctx, p))

		got, err := s.GetProject(ctx, "proj_a")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("SaveProjectIsIdempotentUpsert", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := types.Project{ID: "proj_a", Name: "First", CreatedAt: 1, UpdatedAt: 1}
		require.NoError(t, s.SaveProject(ctx, p))
		require.NoError(t, s.SaveProject(ctx, p)) // retry produces the same end state

		p.Name = "Second"
		p.UpdatedAt = 2
		require.NoError(t, s.SaveProject(ctx, p))

		got, err := s.GetProject(ctx, "proj_a")
		require.NoError(t, err)
		assert.Equal(t, "Second", got.Name)

		all, err := s.GetAllProjects(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ProjectsSortedByUpdatedAtDescending", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i, id := range []string{"proj_old", "proj_new", "proj_mid"} {
			updated := []int64{10, 30, 20}[i]
			require.NoError(t, s.SaveProject(ctx, types.Project{ID: id, Name: id, UpdatedAt: updated}))
		}

		all, err := s.GetAllProjects(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "proj_new", all[0].ID)
		assert.Equal(t, "proj_mid", all[1].ID)
		assert.Equal(t, "proj_old", all[2].ID)
	})

	t.Run("DeleteProjectCascades", func(t *testing.T) {
		for _, versionCount := range []int{0, 1, 50, 51} {
			t.Run(fmt.Sprintf("%d_versions", versionCount), func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				require.NoError(t, s.SaveProject(ctx, types.Project{ID: "proj_x", Name: "X"}))
				require.NoError(t, s.SaveProject(ctx, types.Project{ID: "proj_keep", Name: "Keep"}))
				require.NoError(t, s.SaveVersion(ctx, types.VersionEntry{ID: "ver_keep", ProjectID: "proj_keep", Timestamp: 1}))

				for i := 0; i < versionCount; i++ {
					require.NoError(t, s.SaveVersion(ctx, types.VersionEntry{
						ID:        fmt.Sprintf("ver_%03d", i),
						ProjectID: "proj_x",
						Timestamp: int64(i),
					}))
				}

				require.NoError(t, s.DeleteProject(ctx, "proj_x"))

				_, err := s.GetProject(ctx, "proj_x")
				assert.ErrorIs(t, err, ErrNotFound)

				versions, err := s.GetVersions(ctx, "proj_x")
				require.NoError(t, err)
				assert.Empty(t, versions)

				// Unrelated versions survive the cascade.
				kept, err := s.GetVersions(ctx, "proj_keep")
				require.NoError(t, err)
				assert.Len(t, kept, 1)
			})
		}
	})

	t.Run("RetentionKeepsMostRecentFifty", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.SaveProject(ctx, types.Project{ID: "proj_r", Name: "R"}))

		const total = 60
		for i := 0; i < total; i++ {
			require.NoError(t, s.SaveVersion(ctx, types.VersionEntry{
				ID:        fmt.Sprintf("ver_%03d", i),
				ProjectID: "proj_r",
				Timestamp: int64(1000 + i),
			}))
		}

		versions, err := s.GetVersions(ctx, "proj_r")
		require.NoError(t, err)
		require.Len(t, versions, MaxVersionsPerProject)

		// Newest first, and exactly the 50 most recent by timestamp.
		assert.Equal(t, int64(1000+total-1), versions[0].Timestamp)
		assert.Equal(t, int64(1000+total-MaxVersionsPerProject), versions[len(versions)-1].Timestamp)
		for i := 1; i < len(versions); i++ {
			assert.GreaterOrEqual(t, versions[i-1].Timestamp, versions[i].Timestamp)
		}
	})

	t.Run("DeleteVersion", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.SaveVersion(ctx, types.VersionEntry{ID: "ver_a", ProjectID: "proj_p", Timestamp: 1}))
		require.NoError(t, s.SaveVersion(ctx, types.VersionEntry{ID: "ver_b", ProjectID: "proj_p", Timestamp: 2}))

		require.NoError(t, s.DeleteVersion(ctx, "ver_a"))

		versions, err := s.GetVersions(ctx, "proj_p")
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, "ver_b", versions[0].ID)
	})

	t.Run("SettingsDefaultWhenMissing", func(t *testing.T) {
		s := open(t)
		settings, err := s.LoadSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, types.DefaultSettings(), settings)
	})

	t.Run("SettingsRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		want := types.Settings{
			FontSize:     18,
			FontFamily:   "Fira Code",
			WordWrap:     true,
			Minimap:      false,
			LineNumbers:  true,
			TabSize:      4,
			FormatOnSave: false,
			AutoSave:     false,
		}
		require.NoError(t, s.SaveSettings(ctx, want))

		got, err := s.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemory()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		path := filepath.Join(t.TempDir(), "webpad.db")
		s, err := OpenSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webpad.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveProject(ctx, types.Project{ID: "proj_a", Name: "Persisted", UpdatedAt: 5}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetProject(ctx, "proj_a")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Name)
}

func TestErrorKinds(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrUnavailable))
	assert.False(t, errors.Is(ErrUnavailable, ErrNotFound))
}
