package migrate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/commands/migrate"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/paths"
	"github.com/histofy/histofy/pkg/testutil"
	"github.com/histofy/histofy/pkg/types"
)

var seedBase = time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*testutil.TestRepo, paths.Paths) {
	t.Helper()
	repo := testutil.NewTestRepo(t)
	p := testutil.TempPaths(t, repo.Git.Root())
	return repo, p
}

func ledger(t *testing.T, p paths.Paths) []types.Operation {
	t.Helper()
	ops, err := history.NewFileStore(p).List()
	require.NoError(t, err)
	return ops
}

func TestRunPreviewByDefault(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(3, seedBase)
	head := repo.Head()

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:    "3",
		ToDate:   "2023-06-15",
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Plan)
	assert.Equal(t, 3, res.Plan.CommitCount())
	require.NotNil(t, res.Preview)
	assert.Positive(t, res.Preview.GenerateSummary().TotalOperations)
	assert.False(t, res.Executed)
	assert.Nil(t, res.Migration)

	// A preview writes nothing anywhere.
	assert.Equal(t, head, repo.Head())
	assert.Empty(t, ledger(t, p))
}

func TestRunExecute(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(3, seedBase)
	oldHead := repo.Head()
	ctx := context.Background()

	res, err := migrate.Run(ctx, migrate.Options{
		Range:    "3",
		ToDate:   "2023-06-15",
		Execute:  true,
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Migration)
	assert.True(t, res.Migration.Success)
	assert.Equal(t, 3, res.Migration.MigratedCount)
	assert.True(t, res.Executed)

	// Configured defaults place the commits at 09:00, 09:01, 09:02.
	log, err := repo.Git.Log(ctx, git.LogOptions{})
	require.NoError(t, err)
	require.Len(t, log, 3)
	for i, minute := range []int{2, 1, 0} {
		want := time.Date(2023, 6, 15, 9, minute, 0, 0, time.UTC)
		assert.True(t, log[i].Author.When.Equal(want), "commit %d dated %s", i, log[i].Author.When)
	}

	// The backup branch still points at the original head.
	require.NotEmpty(t, res.Migration.BackupBranch)
	backed, err := repo.Git.ResolveRange(ctx, res.Migration.BackupBranch)
	require.NoError(t, err)
	require.Len(t, backed, 1)
	assert.Equal(t, oldHead, backed[0].Hash)

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, types.OperationMigrate, op.Type)
	assert.Equal(t, types.StatusCompleted, op.Status)
	assert.True(t, op.Undoable)
	require.NotNil(t, op.Result)
	assert.Equal(t, 3, op.Result.MigratedCount)
	assert.Equal(t, res.Migration.BackupBranch, op.Result.BackupBranch)
	assert.Equal(t, res.Migration.FinalHead, op.Result.ResultHead)
	assert.Equal(t, repo.Head(), op.Result.ResultHead)
	require.NotNil(t, op.Snapshot)
	assert.Equal(t, res.Migration.BackupBranch, op.Snapshot.BackupBranch)
}

func TestRunExecuteNoBackup(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(2, seedBase)

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:    "2",
		ToDate:   "2023-06-15",
		Execute:  true,
		NoBackup: true,
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	assert.True(t, res.Migration.Success)
	assert.Empty(t, res.Migration.BackupBranch)

	// Without a backup there is nothing to undo from.
	ops := ledger(t, p)
	require.Len(t, ops, 1)
	assert.False(t, ops[0].Undoable)
}

func TestRunInvalidAutoResolveIgnored(t *testing.T) {
	repo, _ := setup(t)
	repo.Seed(2, seedBase)

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:       "2",
		ToDate:      "2023-06-15",
		Execute:     true,
		AutoResolve: "mine",
		Location:    time.UTC,
		Git:         repo.Git,
	})
	require.NoError(t, err)
	assert.True(t, res.Migration.Success)
}

func TestRunValidation(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)

	tests := []struct {
		name string
		opts migrate.Options
	}{
		{"missing range", migrate.Options{ToDate: "2023-06-15"}},
		{"missing to-date", migrate.Options{Range: "1"}},
		{"bad to-date", migrate.Options{Range: "1", ToDate: "15-06-2023"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Location = time.UTC
			tt.opts.Git = repo.Git
			_, err := migrate.Run(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, ledger(t, p))
}

func TestRunFailureRollsBack(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(3, seedBase)
	oldHead := repo.Head()
	fake := testutil.NewFakeGit(repo.Git)
	fake.RebaseWithDatesFunc = func(ctx context.Context, updates []git.DateUpdate, opts git.RebaseOptions) (*git.RebaseResult, error) {
		return nil, errors.NewGitError("rebase", "object database corrupt", nil)
	}

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:    "3",
		ToDate:   "2023-06-15",
		Execute:  true,
		Location: time.UTC,
		Git:      fake,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGit), "got %v", err)

	// The failure result still reaches the caller for rendering.
	require.NotNil(t, res)
	require.NotNil(t, res.Migration)
	assert.True(t, res.Migration.RolledBack)
	assert.Equal(t, oldHead, repo.Head())

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	assert.Equal(t, types.StatusFailed, ops[0].Status)
	require.NotNil(t, ops[0].Result)
	assert.Equal(t, res.Migration.BackupBranch, ops[0].Result.BackupBranch)
}

func TestRunPushFailureKeepsRewrite(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(3, seedBase)
	fake := testutil.NewFakeGit(repo.Git)
	fake.PushFunc = func(ctx context.Context, opts git.PushOptions) error {
		return errors.NewNetworkError("push", true, nil)
	}

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:    "3",
		ToDate:   "2023-06-15",
		Execute:  true,
		Push:     true,
		Location: time.UTC,
		Git:      fake,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNetwork), "got %v", err)

	// The local rewrite stands; only the push failed.
	require.NotNil(t, res)
	require.NotNil(t, res.Migration)
	assert.True(t, res.Migration.Success)
	assert.False(t, res.Pushed)
	assert.Equal(t, res.Migration.FinalHead, repo.Head())

	// The configured retry budget is three retries, so four attempts.
	assert.Equal(t, 4, fake.CallCount("Push"))

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	assert.Equal(t, types.StatusCompleted, ops[0].Status)
	require.NotNil(t, ops[0].Result)
	assert.False(t, ops[0].Result.Pushed)
}

func TestRunDryRunWithExecute(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(2, seedBase)
	head := repo.Head()

	res, err := migrate.Run(context.Background(), migrate.Options{
		Range:    "2",
		ToDate:   "2023-06-15",
		Execute:  true,
		DryRun:   true,
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	assert.False(t, res.Executed)
	assert.Equal(t, head, repo.Head())
	assert.Empty(t, ledger(t, p))
}
