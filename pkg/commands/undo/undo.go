// Package undo reverses recorded operations and maintains the history
// ledger. Undoing is itself recorded, as a non-undoable operation.
package undo

import (
	"context"
	"fmt"
	"io"

	"github.com/histofy/histofy/pkg/commands/internal"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/types"
)

// Options holds options for the undo command.
type Options struct {
	RepoPath string
	// OperationID undoes one specific operation; a unique id prefix of at
	// least four characters is accepted. Empty undoes the most recent.
	OperationID string
	// Last is how many operations to undo when OperationID is empty;
	// 0 means 1.
	Last int
	// Force applies the inverse even when the safety check refuses.
	Force  bool
	DryRun bool

	// Git injects a repository backend for testing; nil opens RepoPath.
	Git git.Git
}

// Result is what the undo command produced.
type Result struct {
	Results     []*history.UndoResult
	OperationID string
}

// Run undoes operations. Dry runs report each candidate with its current
// safety verdict and never touch the repository or the ledger.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.undo")

	env, err := internal.NewEnv(opts.RepoPath, opts.Git)
	if err != nil {
		return nil, err
	}

	count := opts.Last
	if count <= 0 {
		count = 1
	}

	// Resolve the candidates up front. Typos and an empty ledger fail
	// here, before any lock is taken or failure recorded.
	var candidates []types.Operation
	if opts.OperationID != "" {
		op, err := env.History.GetOperation(opts.OperationID)
		if err != nil {
			return nil, err
		}
		candidates = []types.Operation{*op}
	} else {
		candidates, err = env.History.GetHistory(history.Filter{UndoableOnly: true, Limit: count})
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, errors.Newf(errors.ErrNotFound, "no undoable operations in history")
		}
	}

	if opts.DryRun {
		return preview(ctx, env, candidates), nil
	}

	logger.Info().
		Int("count", len(candidates)).
		Bool("force", opts.Force).
		Msg("Undoing operations")

	undoOpts := history.UndoOptions{Force: opts.Force}
	var results []*history.UndoResult
	res := env.Manager.Execute(ctx, operations.Request{
		Type:        types.OperationUndo,
		Command:     "undo",
		Args:        commandArgs(opts, candidates),
		Description: describeUndo(opts, candidates),
	}, func(ctx context.Context, op *types.Operation) (any, error) {
		if opts.OperationID != "" {
			r, err := env.History.UndoOperation(ctx, candidates[0].ID, undoOpts)
			if r != nil {
				results = append(results, r)
			}
			if err != nil {
				return nil, err
			}
		} else {
			rs, err := env.History.UndoLast(ctx, count, undoOpts)
			results = append(results, rs...)
			if err != nil {
				return nil, err
			}
		}
		if n := len(results); n > 0 {
			op.Result = &types.OperationResult{ResultHead: results[n-1].RestoredHead}
		}
		return results, nil
	})
	out := &Result{Results: results, OperationID: res.Operation.ID}
	if res.Err != nil {
		return out, res.Err
	}
	return out, nil
}

// preview reports what an undo would do. Each candidate carries the
// safety verdict against current state; verdicts for later entries in a
// chain typically clear only after the preceding undo has run.
func preview(ctx context.Context, env *internal.Env, candidates []types.Operation) *Result {
	results := make([]*history.UndoResult, 0, len(candidates))
	for i := range candidates {
		op := candidates[i]
		results = append(results, &history.UndoResult{
			Operation: &op,
			Safety:    env.History.CheckUndoSafety(ctx, &op),
		})
	}
	return &Result{Results: results}
}

// ListOptions narrows a history listing.
type ListOptions struct {
	RepoPath     string
	Type         types.OperationType
	Status       types.Status
	UndoableOnly bool
	Limit        int

	Git git.Git
}

// List returns recorded operations, newest first.
func List(ctx context.Context, opts ListOptions) ([]types.Operation, error) {
	env, err := internal.NewEnv(opts.RepoPath, opts.Git)
	if err != nil {
		return nil, err
	}
	return env.History.GetHistory(history.Filter{
		Type:         opts.Type,
		Status:       opts.Status,
		UndoableOnly: opts.UndoableOnly,
		Limit:        opts.Limit,
	})
}

// Export writes the ledger to w as json or yaml.
func Export(ctx context.Context, repoPath string, g git.Git, w io.Writer, format string) error {
	env, err := internal.NewEnv(repoPath, g)
	if err != nil {
		return err
	}
	return env.History.Export(w, format)
}

// Clear removes the operation history. The repository itself is not
// touched; cleared operations simply can no longer be undone.
func Clear(ctx context.Context, repoPath string, g git.Git) error {
	env, err := internal.NewEnv(repoPath, g)
	if err != nil {
		return err
	}
	return env.History.Clear()
}

// commandArgs reconstructs the invocation for the history ledger.
func commandArgs(opts Options, candidates []types.Operation) []string {
	var args []string
	if opts.OperationID != "" {
		args = []string{"operation", candidates[0].ID}
	} else {
		args = []string{"last", fmt.Sprintf("%d", len(candidates))}
	}
	if opts.Force {
		args = append(args, "--force")
	}
	return args
}

// describeUndo names the undo for the ledger.
func describeUndo(opts Options, candidates []types.Operation) string {
	if opts.OperationID != "" {
		op := candidates[0]
		return fmt.Sprintf("undo %s operation %s", op.Type, shortID(op.ID))
	}
	if len(candidates) == 1 {
		op := candidates[0]
		return fmt.Sprintf("undo %s operation %s", op.Type, shortID(op.ID))
	}
	return fmt.Sprintf("undo last %d operations", len(candidates))
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
