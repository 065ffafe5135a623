// pkg/testutil/environment.go
// DEPENDENCIES: pkg/paths
// PURPOSE: Isolated config and state directories for tests

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/histofy/histofy/pkg/paths"
)

// TempPaths builds a Paths instance rooted in temp directories, with the
// histofy environment variables pointed at them for the duration of the
// test. repoRoot may be empty, in which case a temp directory stands in
// for the repository.
func TempPaths(t *testing.T, repoRoot string) paths.Paths {
	t.Helper()

	if repoRoot == "" {
		repoRoot = t.TempDir()
	}
	base := t.TempDir()

	t.Setenv(paths.EnvConfigDir, filepath.Join(base, "config"))
	t.Setenv(paths.EnvDataDir, filepath.Join(base, "data"))
	t.Setenv(paths.EnvStateDir, filepath.Join(base, "state"))

	p, err := paths.New(repoRoot)
	if err != nil {
		t.Fatalf("Failed to create paths: %v", err)
	}
	return p
}
