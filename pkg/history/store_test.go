package history_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/paths"
	"github.com/histofy/histofy/pkg/testutil"
	"github.com/histofy/histofy/pkg/types"
)

func recordedOp(id string, opType types.OperationType) types.Operation {
	return types.Operation{
		ID:          id,
		Type:        opType,
		Command:     string(opType),
		Description: "recorded " + string(opType),
		Status:      types.StatusCompleted,
		Undoable:    opType.Mutating() && opType != types.OperationUndo,
		StartedAt:   time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2023, 6, 1, 12, 0, 5, 0, time.UTC),
	}
}

func tempFileStore(t *testing.T) (*history.FileStore, paths.Paths) {
	t.Helper()
	p := testutil.TempPaths(t, "")
	return history.NewFileStore(p), p
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, p := tempFileStore(t)

	require.NoError(t, store.Append(recordedOp("op-one", types.OperationCommit)))
	require.NoError(t, store.Append(recordedOp("op-two", types.OperationMigrate)))

	ops, err := store.List()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "op-one", ops[0].ID, "append order is preserved")
	assert.Equal(t, "op-two", ops[1].ID)

	got, err := store.Get("op-two")
	require.NoError(t, err)
	assert.Equal(t, types.OperationMigrate, got.Type)

	require.NoError(t, store.MarkUndone("op-one"))

	// A fresh store over the same file sees the persisted state.
	reopened := history.NewFileStore(p)
	got, err = reopened.Get("op-one")
	require.NoError(t, err)
	assert.Equal(t, types.StatusUndone, got.Status)

	require.NoError(t, store.Clear())
	ops, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestFileStoreEmpty(t *testing.T) {
	store, _ := tempFileStore(t)

	ops, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ops)

	_, err = store.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	err = store.MarkUndone("missing")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	assert.NoError(t, store.Clear(), "clearing an absent ledger is fine")
}

func TestFileStoreCorruptLedger(t *testing.T) {
	store, p := tempFileStore(t)
	require.NoError(t, os.MkdirAll(p.RepoStateDir(), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.List()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInternal))
	assert.Contains(t, err.Error(), "corrupt")
}

func TestMemoryStore(t *testing.T) {
	store := history.NewMemoryStore()

	require.NoError(t, store.Append(recordedOp("op-one", types.OperationCommit)))
	require.NoError(t, store.Append(recordedOp("op-two", types.OperationBatch)))

	ops, err := store.List()
	require.NoError(t, err)
	require.Len(t, ops, 2)

	// The returned slice is a copy.
	ops[0].ID = "mutated"
	again, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, "op-one", again[0].ID)

	require.NoError(t, store.MarkUndone("op-two"))
	got, err := store.Get("op-two")
	require.NoError(t, err)
	assert.Equal(t, types.StatusUndone, got.Status)

	_, err = store.Get("missing")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	require.NoError(t, store.Clear())
	ops, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, ops)
}
