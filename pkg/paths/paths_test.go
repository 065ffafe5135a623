package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		repoRoot string
		envSetup map[string]string
		validate func(t *testing.T, p Paths)
	}{
		{
			name:     "explicit repo root",
			repoRoot: "/tmp/project",
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/tmp/project", p.RepoRoot())
				assert.False(t, p.UsedFallback())
			},
		},
		{
			name: "from HISTOFY_REPO env",
			envSetup: map[string]string{
				EnvRepoRoot: "/env/project",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/env/project", p.RepoRoot())
			},
		},
		{
			name:     "expand tilde in explicit path",
			repoRoot: "~/my-project",
			validate: func(t *testing.T, p Paths) {
				homeDir, _ := os.UserHomeDir()
				assert.Equal(t, filepath.Join(homeDir, "my-project"), p.RepoRoot())
			},
		},
		{
			name:     "custom XDG directories",
			repoRoot: "/tmp/project",
			envSetup: map[string]string{
				EnvConfigDir: "/custom/config",
				EnvDataDir:   "/custom/data",
				EnvStateDir:  "/custom/state",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/custom/config", p.ConfigDir())
				assert.Equal(t, "/custom/data", p.DataDir())
				assert.Equal(t, "/custom/state", p.StateDir())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envSetup {
				t.Setenv(k, v)
			}

			p, err := New(tt.repoRoot)
			require.NoError(t, err)
			tt.validate(t, p)
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, findGitRoot(nested))
	assert.Equal(t, root, findGitRoot(root))

	// A .git file (worktree pointer) counts too
	wt := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: elsewhere"), 0644))
	assert.Equal(t, wt, findGitRoot(wt))

	// No repository above a bare temp dir
	assert.Equal(t, "", findGitRoot(t.TempDir()))
}

func TestRepoStatePaths(t *testing.T) {
	t.Setenv(EnvStateDir, "/custom/state")

	p, err := New("/tmp/project")
	require.NoError(t, err)

	key := RepoKey("/tmp/project")
	assert.Len(t, key, 16)
	assert.Equal(t, filepath.Join("/custom/state", ReposDir, key), p.RepoStateDir())
	assert.Equal(t, filepath.Join(p.RepoStateDir(), HistoryFileName), p.HistoryPath())
	assert.Equal(t, filepath.Join(p.RepoStateDir(), LockFileName), p.LockPath())
	assert.Equal(t, filepath.Join("/custom/state", LogFileName), p.LogFilePath())
}

func TestRepoKeyStable(t *testing.T) {
	// Same directory spelled differently hashes the same
	assert.Equal(t, RepoKey("/tmp/project"), RepoKey("/tmp/project/"))
	assert.Equal(t, RepoKey("/tmp/project"), RepoKey("/tmp/./project"))

	// Different directories do not collide
	assert.NotEqual(t, RepoKey("/tmp/project"), RepoKey("/tmp/other"))
}

func TestNormalizePath(t *testing.T) {
	p, err := New("/tmp/project")
	require.NoError(t, err)

	t.Run("empty path rejected", func(t *testing.T) {
		_, err := p.NormalizePath("")
		assert.Error(t, err)
	})

	t.Run("cleans and absolutizes", func(t *testing.T) {
		got, err := p.NormalizePath("/a/b/../c")
		require.NoError(t, err)
		assert.Equal(t, "/a/c", got)
	})

	t.Run("expands home", func(t *testing.T) {
		homeDir, _ := os.UserHomeDir()
		got, err := p.NormalizePath("~/x")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(homeDir, "x"), got)
	})
}
