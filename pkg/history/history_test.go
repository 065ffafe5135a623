package history_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/testutil"
	"github.com/histofy/histofy/pkg/types"
)

var seedBase = time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

func newHistory(g git.Git) (*history.History, *history.MemoryStore) {
	store := history.NewMemoryStore()
	return history.New(store, g), store
}

// commitOp builds the ledger entry a completed commit operation leaves.
func commitOp(id, snapshotHead, resultHead string) types.Operation {
	return types.Operation{
		ID:          id,
		Type:        types.OperationCommit,
		Command:     "commit",
		Description: "commit with custom date",
		Status:      types.StatusCompleted,
		Undoable:    true,
		StartedAt:   seedBase,
		Snapshot: &types.Snapshot{
			RepoPath:   "/",
			HeadCommit: snapshotHead,
			Branch:     "master",
			CreatedAt:  seedBase,
		},
		Result: &types.OperationResult{
			CommitHashes: []string{resultHead},
			ResultHead:   resultHead,
		},
	}
}

func migrationOp(id, snapshotHead, resultHead, backup string) types.Operation {
	op := commitOp(id, snapshotHead, resultHead)
	op.Type = types.OperationMigrate
	op.Command = "migrate"
	op.Description = "migrate commit dates"
	op.Result = &types.OperationResult{
		MigratedCount: 2,
		BackupBranch:  backup,
		ResultHead:    resultHead,
	}
	return op
}

func TestGetHistoryFilters(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	h, store := newHistory(repo.Git)

	first := commitOp("op-commit-1", "a", "b")
	second := migrationOp("op-migrate-1", "b", "c", "histofy-backup-x-1")
	third := commitOp("op-commit-2", "c", "d")
	third.Status = types.StatusFailed
	fourth := commitOp("op-status-1", "d", "d")
	fourth.Type = types.OperationStatus
	fourth.Undoable = false

	for _, op := range []types.Operation{first, second, third, fourth} {
		require.NoError(t, store.Append(op))
	}

	all, err := h.GetHistory(history.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "op-status-1", all[0].ID, "newest first")
	assert.Equal(t, "op-commit-1", all[3].ID)

	commits, err := h.GetHistory(history.Filter{Type: types.OperationCommit})
	require.NoError(t, err)
	assert.Len(t, commits, 2)

	failed, err := h.GetHistory(history.Filter{Status: types.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "op-commit-2", failed[0].ID)

	undoable, err := h.GetHistory(history.Filter{UndoableOnly: true})
	require.NoError(t, err)
	require.Len(t, undoable, 2, "failed and read-only entries are not undo candidates")
	assert.Equal(t, "op-migrate-1", undoable[0].ID)

	limited, err := h.GetHistory(history.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "op-status-1", limited[0].ID)
}

func TestGetOperationPrefix(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	h, store := newHistory(repo.Git)

	require.NoError(t, store.Append(commitOp("11112222-aaaa", "a", "b")))
	require.NoError(t, store.Append(commitOp("11113333-bbbb", "b", "c")))

	got, err := h.GetOperation("11112222-aaaa")
	require.NoError(t, err)
	assert.Equal(t, "11112222-aaaa", got.ID)

	got, err = h.GetOperation("11113333")
	require.NoError(t, err)
	assert.Equal(t, "11113333-bbbb", got.ID)

	_, err = h.GetOperation("1111")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "shared prefix is ambiguous")

	_, err = h.GetOperation("11")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound), "too short for prefix matching")

	_, err = h.GetOperation("99998888")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestCheckUndoSafety(t *testing.T) {
	ctx := context.Background()

	t.Run("clean repository is safe", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		h, _ := newHistory(repo.Git)

		op := commitOp("op-1", hashes[0], hashes[1])
		safety := h.CheckUndoSafety(ctx, &op)
		assert.True(t, safety.Safe)
		assert.Empty(t, safety.Reason)
	})

	t.Run("untracked files do not block", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		repo.WriteFile("scratch.txt", "wip\n")
		h, _ := newHistory(repo.Git)

		op := commitOp("op-1", hashes[0], hashes[1])
		safety := h.CheckUndoSafety(ctx, &op)
		assert.True(t, safety.Safe)
	})

	t.Run("tracked modifications block", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		repo.WriteFile("file0.txt", "edited\n")
		h, _ := newHistory(repo.Git)

		op := commitOp("op-1", hashes[0], hashes[1])
		safety := h.CheckUndoSafety(ctx, &op)
		assert.False(t, safety.Safe)
		assert.Contains(t, safety.Reason, "uncommitted changes")
	})

	t.Run("newer history blocks", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		op := commitOp("op-1", hashes[0], hashes[1])
		repo.CommitFile("later.txt", "later\n", "later commit", seedBase.Add(3*time.Hour))
		h, _ := newHistory(repo.Git)

		safety := h.CheckUndoSafety(ctx, &op)
		assert.False(t, safety.Safe)
		assert.Contains(t, safety.Reason, "newer commits exist")
	})

	t.Run("missing backup branch blocks migration undo", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		h, _ := newHistory(repo.Git)

		op := migrationOp("op-1", hashes[0], hashes[1], "histofy-backup-gone-1")
		safety := h.CheckUndoSafety(ctx, &op)
		assert.False(t, safety.Safe)
		assert.Contains(t, safety.Reason, "no longer exists")
	})

	t.Run("migration without backup blocks", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		h, _ := newHistory(repo.Git)

		op := migrationOp("op-1", hashes[0], hashes[1], "")
		safety := h.CheckUndoSafety(ctx, &op)
		assert.False(t, safety.Safe)
		assert.Contains(t, safety.Reason, "without a backup branch")
	})

	t.Run("lifecycle states block", func(t *testing.T) {
		repo := testutil.NewTestRepo(t)
		hashes := repo.Seed(2, seedBase)
		h, _ := newHistory(repo.Git)

		undone := commitOp("op-1", hashes[0], hashes[1])
		undone.Status = types.StatusUndone
		assert.Contains(t, h.CheckUndoSafety(ctx, &undone).Reason, "already undone")

		failed := commitOp("op-2", hashes[0], hashes[1])
		failed.Status = types.StatusFailed
		assert.Contains(t, h.CheckUndoSafety(ctx, &failed).Reason, "did not complete")

		readOnly := commitOp("op-3", hashes[0], hashes[1])
		readOnly.Undoable = false
		assert.Contains(t, h.CheckUndoSafety(ctx, &readOnly).Reason, "not undoable")
	})
}

func TestUndoCommitOperation(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(1, seedBase)
	newHead := repo.CommitFile("feature.txt", "new\n", "add feature", seedBase.Add(time.Hour))
	ctx := context.Background()

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(commitOp("op-commit", hashes[0], newHead)))

	result, err := h.UndoOperation(ctx, "op-commit", history.UndoOptions{})
	require.NoError(t, err)
	assert.True(t, result.Undone)
	assert.False(t, result.Forced)
	assert.Equal(t, hashes[0], result.RestoredHead)
	assert.Equal(t, hashes[0], repo.Head())

	// Mixed reset keeps the committed work in the tree.
	_, err = repo.FS.Stat("feature.txt")
	assert.NoError(t, err)

	stored, err := store.Get("op-commit")
	require.NoError(t, err)
	assert.Equal(t, types.StatusUndone, stored.Status)

	_, err = h.UndoOperation(ctx, "op-commit", history.UndoOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyUndone))
	assert.Equal(t, hashes[0], repo.Head(), "refused undo must not move HEAD")
}

func TestUndoMigrationOperation(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(2, seedBase)
	ctx := context.Background()

	backup := "histofy-backup-op12345-1700000000"
	require.NoError(t, repo.Git.CreateBranch(ctx, backup, hashes[1]))
	rewritten := repo.CommitFile("rewritten.txt", "x\n", "rewritten head", seedBase.Add(3*time.Hour))

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(migrationOp("op-migrate", hashes[1], rewritten, backup)))

	result, err := h.UndoOperation(ctx, "op-migrate", history.UndoOptions{})
	require.NoError(t, err)
	assert.True(t, result.Undone)
	assert.True(t, result.BackupDeleted)
	assert.Equal(t, hashes[1], result.RestoredHead)
	assert.Equal(t, hashes[1], repo.Head())

	exists, err := repo.Git.BranchExists(ctx, backup)
	require.NoError(t, err)
	assert.False(t, exists, "the backup equals HEAD after undo and is removed")
}

func TestUndoRefusedWhenUnsafe(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(1, seedBase)
	committed := repo.CommitFile("feature.txt", "new\n", "add feature", seedBase.Add(time.Hour))
	ctx := context.Background()

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(commitOp("op-commit", hashes[0], committed)))

	// History moved past the operation.
	newest := repo.CommitFile("later.txt", "later\n", "later commit", seedBase.Add(2*time.Hour))

	result, err := h.UndoOperation(ctx, "op-commit", history.UndoOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUndoUnsafe))
	require.NotNil(t, result)
	assert.Contains(t, result.Safety.Reason, "newer commits exist")
	assert.Equal(t, newest, repo.Head(), "a refused undo changes nothing")

	stored, err := store.Get("op-commit")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, stored.Status)
}

func TestUndoForced(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(1, seedBase)
	committed := repo.CommitFile("feature.txt", "new\n", "add feature", seedBase.Add(time.Hour))
	repo.CommitFile("later.txt", "later\n", "later commit", seedBase.Add(2*time.Hour))
	ctx := context.Background()

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(commitOp("op-commit", hashes[0], committed)))

	result, err := h.UndoOperation(ctx, "op-commit", history.UndoOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Undone)
	assert.True(t, result.Forced)
	assert.Equal(t, hashes[0], repo.Head(), "force resets past the newer commit")

	stored, err := store.Get("op-commit")
	require.NoError(t, err)
	assert.Equal(t, types.StatusUndone, stored.Status)
}

func TestUndoDryRun(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(1, seedBase)
	committed := repo.CommitFile("feature.txt", "new\n", "add feature", seedBase.Add(time.Hour))
	ctx := context.Background()

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(commitOp("op-commit", hashes[0], committed)))

	result, err := h.UndoOperation(ctx, "op-commit", history.UndoOptions{DryRun: true})
	require.NoError(t, err)
	assert.False(t, result.Undone)
	assert.True(t, result.Safety.Safe)
	assert.Equal(t, committed, repo.Head(), "dry run mutates nothing")

	stored, err := store.Get("op-commit")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, stored.Status)
}

func TestUndoLastChain(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	hashes := repo.Seed(1, seedBase)
	first := repo.CommitFile("one.txt", "1\n", "add one", seedBase.Add(time.Hour))
	second := repo.CommitFile("two.txt", "2\n", "add two", seedBase.Add(2*time.Hour))
	ctx := context.Background()

	h, store := newHistory(repo.Git)
	require.NoError(t, store.Append(commitOp("op-first", hashes[0], first)))
	require.NoError(t, store.Append(commitOp("op-second", first, second)))

	results, err := h.UndoLast(ctx, 2, history.UndoOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "op-second", results[0].Operation.ID, "newest is undone first")
	assert.Equal(t, "op-first", results[1].Operation.ID)
	assert.Equal(t, hashes[0], repo.Head())

	for _, id := range []string{"op-first", "op-second"} {
		stored, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusUndone, stored.Status)
	}
}

func TestUndoLastValidation(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	repo.Seed(1, seedBase)
	h, _ := newHistory(repo.Git)
	ctx := context.Background()

	_, err := h.UndoLast(ctx, 0, history.UndoOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidation))

	_, err = h.UndoLast(ctx, 1, history.UndoOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestExport(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	h, store := newHistory(repo.Git)

	require.NoError(t, store.Append(commitOp("op-one", "a", "b")))
	require.NoError(t, store.Append(commitOp("op-two", "b", "c")))

	var buf bytes.Buffer
	require.NoError(t, h.Export(&buf, "json"))
	var ops []types.Operation
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ops))
	require.Len(t, ops, 2)
	assert.Equal(t, "op-one", ops[0].ID, "export keeps append order")

	buf.Reset()
	require.NoError(t, h.Export(&buf, "yaml"))
	assert.Contains(t, buf.String(), "id: op-one")

	err := h.Export(&buf, "xml")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidation))
}

func TestClearHistory(t *testing.T) {
	repo := testutil.NewTestRepo(t)
	h, store := newHistory(repo.Git)

	require.NoError(t, store.Append(commitOp("op-one", "a", "b")))
	require.NoError(t, h.Clear())

	ops, err := h.GetHistory(history.Filter{})
	require.NoError(t, err)
	assert.Empty(t, ops)
}
