package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configcmd "github.com/histofy/histofy/pkg/commands/config"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/paths"
	"github.com/histofy/histofy/pkg/testutil"
	"github.com/histofy/histofy/pkg/types"
)

func setup(t *testing.T) (string, paths.Paths) {
	t.Helper()
	repoDir := t.TempDir()
	p := testutil.TempPaths(t, repoDir)
	return repoDir, p
}

func TestGetReturnsDefaults(t *testing.T) {
	repoDir, _ := setup(t)

	tests := []struct {
		key  string
		want string
	}{
		{"migration.start_time", "09:00"},
		{"migration.spacing_minutes", "1"},
		{"migration.spread_days", "1"},
		{"migration.create_backup", "true"},
		{"commit.default_time", ""},
		{"push.retries", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := configcmd.Get(repoDir, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetUnknownKey(t *testing.T) {
	repoDir, _ := setup(t)

	_, err := configcmd.Get(repoDir, "migration.teleport")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)
}

func TestListCoversEveryKeySorted(t *testing.T) {
	repoDir, _ := setup(t)

	entries, err := configcmd.List(repoDir)
	require.NoError(t, err)
	require.Len(t, entries, 10)

	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Key, entries[i].Key, "entries must be sorted")
	}

	byKey := make(map[string]string, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e.Value
	}
	assert.Equal(t, "09:00", byKey["migration.start_time"])
	assert.Equal(t, "true", byKey["migration.rollback_on_failure"])
	assert.Equal(t, "0", byKey["history.max_entries"])
}

func TestSetRoundTrip(t *testing.T) {
	repoDir, p := setup(t)

	res, err := configcmd.Set(context.Background(), configcmd.SetOptions{
		RepoPath: repoDir,
		Key:      "migration.spread_days",
		Value:    "5",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.OperationID)
	assert.Nil(t, res.Preview)

	got, err := configcmd.Get(repoDir, "migration.spread_days")
	require.NoError(t, err)
	assert.Equal(t, "5", got)

	// The write went to the user config file.
	_, err = os.Stat(p.ConfigFilePath())
	require.NoError(t, err)

	// Recorded in the ledger as a completed, non-undoable operation.
	ops, err := history.NewFileStore(p).List()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, res.OperationID, ops[0].ID)
	assert.Equal(t, types.OperationConfig, ops[0].Type)
	assert.Equal(t, types.StatusCompleted, ops[0].Status)
	assert.False(t, ops[0].Undoable)
	assert.Nil(t, ops[0].Snapshot, "config never snapshots the repository")
}

func TestSetPreservesOtherKeys(t *testing.T) {
	repoDir, _ := setup(t)

	for key, value := range map[string]string{
		"migration.start_time": "10:30",
		"push.retries":         "7",
	} {
		_, err := configcmd.Set(context.Background(), configcmd.SetOptions{
			RepoPath: repoDir, Key: key, Value: value,
		})
		require.NoError(t, err)
	}

	got, err := configcmd.Get(repoDir, "migration.start_time")
	require.NoError(t, err)
	assert.Equal(t, "10:30", got)
	got, err = configcmd.Get(repoDir, "push.retries")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestSetDryRun(t *testing.T) {
	repoDir, p := setup(t)

	res, err := configcmd.Set(context.Background(), configcmd.SetOptions{
		RepoPath: repoDir,
		Key:      "migration.start_time",
		Value:    "10:00",
		DryRun:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	assert.Equal(t, 1, res.Preview.GenerateSummary().TotalOperations)

	// Nothing written, nothing recorded.
	_, err = os.Stat(p.ConfigFilePath())
	assert.True(t, os.IsNotExist(err))
	ops, err := history.NewFileStore(p).List()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestSetRejectsBadValues(t *testing.T) {
	repoDir, p := setup(t)

	tests := []struct {
		name  string
		key   string
		value string
		code  errors.ErrorCode
	}{
		{"unknown key", "migration.teleport", "1", errors.ErrValidation},
		{"non-integer", "migration.spread_days", "soon", errors.ErrValidation},
		{"non-boolean", "migration.create_backup", "maybe", errors.ErrValidation},
		{"bad time in context", "migration.start_time", "25:99", errors.ErrConfiguration},
		{"zero spacing in context", "migration.spacing_minutes", "0", errors.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := configcmd.Set(context.Background(), configcmd.SetOptions{
				RepoPath: repoDir, Key: tt.key, Value: tt.value,
			})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}

	// Rejected values never reach the file.
	_, err := os.Stat(p.ConfigFilePath())
	assert.True(t, os.IsNotExist(err))
}
