package commit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/commands/commit"
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

func TestRunCreatesDatedCommit(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	repo.WriteFile("feature.txt", "v1")

	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Add feature",
		Date:     "2023-06-10",
		Time:     "14:30",
		Files:    []string{"feature.txt"},
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Commit)

	assert.Equal(t, repo.Head(), res.Commit.Hash)
	want := time.Date(2023, 6, 10, 14, 30, 0, 0, time.UTC)
	assert.True(t, res.Commit.Author.When.Equal(want), "author date %s", res.Commit.Author.When)
	assert.True(t, res.Commit.Committer.When.Equal(want), "committer date %s", res.Commit.Committer.When)
	assert.False(t, res.Pushed)

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, res.OperationID, op.ID)
	assert.Equal(t, types.OperationCommit, op.Type)
	assert.Equal(t, types.StatusCompleted, op.Status)
	assert.True(t, op.Undoable)
	require.NotNil(t, op.Result)
	assert.Equal(t, []string{res.Commit.Hash}, op.Result.CommitHashes)
	assert.Equal(t, res.Commit.Hash, op.Result.ResultHead)
	require.NotNil(t, op.Snapshot)
	assert.NotEqual(t, op.Snapshot.HeadCommit, op.Result.ResultHead)
}

func TestRunDefaultsDateAndTimeToNow(t *testing.T) {
	repo, _ := setup(t)
	repo.Seed(1, seedBase)
	repo.WriteFile("notes.txt", "n")

	now := time.Date(2023, 6, 20, 10, 30, 0, 0, time.UTC)
	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Notes",
		AddAll:   true,
		Location: time.UTC,
		Now:      now,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	assert.True(t, res.Commit.Author.When.Equal(now), "got %s", res.Commit.Author.When)
}

func TestRunAuthorOverride(t *testing.T) {
	repo, _ := setup(t)
	repo.Seed(1, seedBase)
	repo.WriteFile("a.txt", "a")

	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Authored",
		Date:     "2023-06-10",
		Time:     "09:00",
		Author:   "Alice Dev <alice@example.com>",
		AddAll:   true,
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Dev", res.Commit.Author.Name)
	assert.Equal(t, "alice@example.com", res.Commit.Author.Email)
}

func TestRunValidation(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	fake := testutil.NewFakeGit(repo.Git)

	tests := []struct {
		name string
		opts commit.Options
	}{
		{"empty message", commit.Options{Message: "   "}},
		{"bad date", commit.Options{Message: "m", Date: "06/10/2023"}},
		{"bad time", commit.Options{Message: "m", Date: "2023-06-10", Time: "2pm"}},
		{"bad author", commit.Options{Message: "m", Date: "2023-06-10", Time: "09:00", Author: "no-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Location = time.UTC
			tt.opts.Git = fake
			_, err := commit.Run(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)
		})
	}

	// Validation failures never reach the repository or the ledger.
	assert.Equal(t, 0, fake.CallCount("CommitWithDate"))
	assert.Empty(t, ledger(t, p))
}

func TestRunDryRun(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	head := repo.Head()
	fake := testutil.NewFakeGit(repo.Git)

	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Would commit",
		Date:     "2023-06-10",
		Time:     "09:00",
		AddAll:   true,
		Push:     true,
		DryRun:   true,
		Location: time.UTC,
		Git:      fake,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Preview)

	summary := res.Preview.GenerateSummary()
	assert.Equal(t, 3, summary.TotalOperations) // stage, commit, push
	assert.Nil(t, res.Commit)

	assert.Equal(t, head, repo.Head())
	assert.Equal(t, 0, fake.CallCount("CommitWithDate"))
	assert.Empty(t, ledger(t, p))
}

func TestRunPushSuccess(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	repo.WriteFile("f.txt", "f")
	fake := testutil.NewFakeGit(repo.Git)
	fake.PushFunc = func(ctx context.Context, opts git.PushOptions) error { return nil }

	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Pushed",
		Date:     "2023-06-10",
		Time:     "09:00",
		AddAll:   true,
		Push:     true,
		Location: time.UTC,
		Git:      fake,
	})
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, 1, fake.CallCount("Push"))

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	require.NotNil(t, ops[0].Result)
	assert.True(t, ops[0].Result.Pushed)
}

func TestRunPushFailureKeepsCommit(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	repo.WriteFile("f.txt", "f")
	fake := testutil.NewFakeGit(repo.Git)
	fake.PushFunc = func(ctx context.Context, opts git.PushOptions) error {
		return errors.NewNetworkError("push", true, nil)
	}

	res, err := commit.Run(context.Background(), commit.Options{
		Message:  "Push fails",
		Date:     "2023-06-10",
		Time:     "09:00",
		AddAll:   true,
		Push:     true,
		Location: time.UTC,
		Git:      fake,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNetwork), "got %v", err)

	// The commit stands: the result carries it and the repository keeps it.
	require.NotNil(t, res)
	require.NotNil(t, res.Commit)
	assert.False(t, res.Pushed)
	assert.Equal(t, res.Commit.Hash, repo.Head())

	// The ledger records a completed, unpushed operation, not a failure.
	ops := ledger(t, p)
	require.Len(t, ops, 1)
	assert.Equal(t, types.StatusCompleted, ops[0].Status)
	require.NotNil(t, ops[0].Result)
	assert.False(t, ops[0].Result.Pushed)
}

func TestRunCommitFailureRestores(t *testing.T) {
	repo, p := setup(t)
	repo.Seed(1, seedBase)
	head := repo.Head()

	// Nothing staged and AllowEmpty unset: the backend refuses.
	_, err := commit.Run(context.Background(), commit.Options{
		Message:  "Nothing here",
		Date:     "2023-06-10",
		Time:     "09:00",
		Location: time.UTC,
		Git:      repo.Git,
	})
	require.Error(t, err)
	assert.Equal(t, head, repo.Head())

	ops := ledger(t, p)
	require.Len(t, ops, 1)
	assert.Equal(t, types.StatusFailed, ops[0].Status)
	assert.NotEmpty(t, ops[0].Error)
}
