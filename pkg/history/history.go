// Package history is the append-only operation ledger and the undo engine
// on top of it. Operations are never deleted: undo applies the inverse git
// action and marks the entry undone.
//
// Undo safety is computed from live repository state every time it is
// asked for. A verdict is stale the moment anything else touches the
// repository, so nothing here caches one.
package history

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/types"
)

// minPrefixLen is the shortest operation id prefix GetOperation accepts.
// Backup branch names embed the first 8 characters of the id, so that is
// what users paste back.
const minPrefixLen = 4

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	Type         types.OperationType
	Status       types.Status
	UndoableOnly bool
	Limit        int
}

// UndoOptions controls one undo. Force applies the inverse even when the
// safety check says no; DryRun runs every check and stops short of
// touching the repository.
type UndoOptions struct {
	Force  bool
	DryRun bool
}

// UndoResult reports what an undo did, or would do under DryRun.
type UndoResult struct {
	Operation     *types.Operation
	Safety        types.UndoSafetyCheck
	Undone        bool
	Forced        bool
	RestoredHead  string
	BackupDeleted bool
}

// History reads the ledger and undoes operations recorded in it.
type History struct {
	store  Store
	git    git.Git
	logger zerolog.Logger
}

// New returns a History over the given store and repository backend.
func New(store Store, g git.Git) *History {
	return &History{
		store:  store,
		git:    g,
		logger: logging.GetLogger("history"),
	}
}

// GetHistory lists recorded operations newest first.
func (h *History) GetHistory(f Filter) ([]types.Operation, error) {
	ops, err := h.store.List()
	if err != nil {
		return nil, err
	}

	out := make([]types.Operation, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if f.Type != "" && op.Type != f.Type {
			continue
		}
		if f.Status != "" && op.Status != f.Status {
			continue
		}
		if f.UndoableOnly && !(op.Undoable && op.Status == types.StatusCompleted) {
			continue
		}
		out = append(out, op)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// GetOperation finds an operation by exact id or unique prefix.
func (h *History) GetOperation(id string) (*types.Operation, error) {
	op, err := h.store.Get(id)
	if err == nil {
		return op, nil
	}
	if !errors.IsErrorCode(err, errors.ErrNotFound) {
		return nil, err
	}
	if len(id) < minPrefixLen {
		return nil, err
	}

	ops, listErr := h.store.List()
	if listErr != nil {
		return nil, listErr
	}
	var match *types.Operation
	for i := range ops {
		if !strings.HasPrefix(ops[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, errors.NewValidationError("operation",
				"operation id %s is ambiguous, use more characters", id)
		}
		match = &ops[i]
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

// CheckUndoSafety decides whether op can be undone against the repository
// as it stands right now.
func (h *History) CheckUndoSafety(ctx context.Context, op *types.Operation) types.UndoSafetyCheck {
	unsafe := func(reason string) types.UndoSafetyCheck {
		return types.UndoSafetyCheck{Reason: reason}
	}

	if op.Status == types.StatusUndone {
		return unsafe("operation was already undone")
	}
	if !op.Undoable {
		return unsafe("operation is not undoable")
	}
	if op.Status != types.StatusCompleted {
		return unsafe("operation did not complete (status " + string(op.Status) + ")")
	}
	if op.Snapshot == nil {
		return unsafe("operation has no snapshot")
	}

	status, err := h.git.Status(ctx)
	if err != nil {
		return unsafe("could not read repository status: " + err.Error())
	}
	// Untracked files survive both reset modes, so only tracked
	// modifications block. Undoing a commit leaves its files untracked,
	// and the next undo in a chain must still be possible.
	if len(status.Staged) > 0 || len(status.Unstaged) > 0 {
		return unsafe("working tree has uncommitted changes")
	}

	if op.Result == nil || op.Result.ResultHead == "" {
		return unsafe("operation has no recorded result head")
	}
	head, err := h.git.Head(ctx)
	if err != nil {
		return unsafe("could not read HEAD: " + err.Error())
	}
	if head.Hash != op.Result.ResultHead {
		return unsafe("newer commits exist: HEAD " + shortHash(head.Hash) +
			" does not match the operation's result " + shortHash(op.Result.ResultHead))
	}

	if op.Type == types.OperationMigrate {
		backup := op.Result.BackupBranch
		if backup == "" {
			return unsafe("migration was run without a backup branch")
		}
		exists, err := h.git.BranchExists(ctx, backup)
		if err != nil {
			return unsafe("could not check backup branch: " + err.Error())
		}
		if !exists {
			return unsafe("backup branch " + backup + " no longer exists")
		}
	}

	return types.UndoSafetyCheck{Safe: true}
}

// UndoOperation applies the inverse of a recorded operation and marks it
// undone. The safety verdict travels back in the result even when the undo
// is refused.
func (h *History) UndoOperation(ctx context.Context, id string, opts UndoOptions) (*UndoResult, error) {
	op, err := h.GetOperation(id)
	if err != nil {
		return nil, err
	}

	// These two are invariants, not safety judgments; force does not
	// override them.
	if op.Status == types.StatusUndone {
		return nil, errors.Newf(errors.ErrAlreadyUndone,
			"operation %s was already undone", shortHash(op.ID))
	}
	if !op.Undoable {
		return nil, errors.Newf(errors.ErrUndoUnsafe,
			"%s operation %s is not undoable", op.Type, shortHash(op.ID))
	}

	safety := h.CheckUndoSafety(ctx, op)
	result := &UndoResult{Operation: op, Safety: safety}
	if !safety.Safe {
		if !opts.Force {
			return result, errors.Newf(errors.ErrUndoUnsafe, "refusing to undo: %s", safety.Reason)
		}
		result.Forced = true
		h.logger.Warn().
			Str("operation_id", op.ID).
			Str("reason", safety.Reason).
			Msg("Unsafe undo forced")
	}

	if opts.DryRun {
		return result, nil
	}
	if err := h.applyInverse(ctx, op, result); err != nil {
		return result, err
	}
	return result, nil
}

// UndoLast undoes the n most recent undoable operations, newest first.
// Each undo restores the previous operation's result head, so the chain
// stays consistent as it unwinds.
func (h *History) UndoLast(ctx context.Context, n int, opts UndoOptions) ([]*UndoResult, error) {
	if n < 1 {
		return nil, errors.NewValidationError("count", "undo count must be at least 1, got %d", n)
	}

	candidates, err := h.GetHistory(Filter{UndoableOnly: true, Limit: n})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.Newf(errors.ErrNotFound, "no undoable operations in history")
	}

	results := make([]*UndoResult, 0, len(candidates))
	for _, op := range candidates {
		res, err := h.UndoOperation(ctx, op.ID, opts)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Export writes the full ledger in append order. Formats: json (default)
// and yaml.
func (h *History) Export(w io.Writer, format string) error {
	ops, err := h.store.List()
	if err != nil {
		return err
	}
	if ops == nil {
		ops = []types.Operation{}
	}

	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ops)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(ops); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.NewValidationError("format", "unsupported export format %q, expected json or yaml", format)
}

// Clear removes every recorded operation. Backup branches referenced by
// cleared entries are left alone.
func (h *History) Clear() error {
	if err := h.store.Clear(); err != nil {
		return err
	}
	h.logger.Info().Msg("Operation history cleared")
	return nil
}

// applyInverse performs the git-side undo and flips the ledger entry.
func (h *History) applyInverse(ctx context.Context, op *types.Operation, result *UndoResult) error {
	switch op.Type {
	case types.OperationMigrate:
		backup := op.Result.BackupBranch
		if err := h.git.ResetHard(ctx, backup); err != nil {
			return errors.Wrap(err, errors.ErrGit, "failed to restore from backup branch")
		}
		// The backup now equals HEAD; keeping it would leak one branch per
		// undone migration. Deletion failures only warn.
		if err := h.git.DeleteBranch(ctx, backup); err != nil {
			h.logger.Warn().Err(err).Str("branch", backup).Msg("Could not delete backup branch")
		} else {
			result.BackupDeleted = true
		}
	case types.OperationCommit, types.OperationBatch:
		// A mixed reset keeps the committed changes in the working tree.
		if err := h.git.ResetMixed(ctx, op.Snapshot.HeadCommit); err != nil {
			return errors.Wrap(err, errors.ErrGit, "failed to reset to snapshot")
		}
	default:
		return errors.Newf(errors.ErrUndoUnsafe, "no undo strategy for %s operations", op.Type)
	}

	if head, err := h.git.Head(ctx); err == nil {
		result.RestoredHead = head.Hash
	}
	if err := h.store.MarkUndone(op.ID); err != nil {
		return err
	}
	op.Status = types.StatusUndone
	result.Undone = true
	h.logger.Info().
		Str("operation_id", op.ID).
		Str("type", string(op.Type)).
		Str("head", result.RestoredHead).
		Msg("Operation undone")
	return nil
}

func shortHash(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
