package operations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/lock"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/types"
)

// Recorder receives finished operations for the history ledger. Implemented
// by the history stores; tests drop in their own.
type Recorder interface {
	Append(op types.Operation) error
}

// Request describes the command about to run.
type Request struct {
	Type        types.OperationType
	Command     string
	Args        []string
	Description string
}

// Result is what Execute hands back. Err carries the command's failure;
// Restored says whether the snapshot restore ran after it.
type Result struct {
	Success   bool
	Err       error
	Restored  bool
	Value     any
	Operation *types.Operation
}

// Fn is the command body. It receives the operation record so it can read
// the generated ID and attach its OperationResult before returning.
type Fn func(ctx context.Context, op *types.Operation) (any, error)

// Manager serializes mutating commands against one repository and keeps
// the history ledger in step with what actually happened.
type Manager struct {
	git      git.Git
	locker   *lock.Locker
	recorder Recorder
	logger   zerolog.Logger
}

// NewManager wires a manager over the given backend, repository lock and
// history recorder.
func NewManager(g git.Git, locker *lock.Locker, recorder Recorder) *Manager {
	return &Manager{
		git:      g,
		locker:   locker,
		recorder: recorder,
		logger:   logging.GetLogger("operations"),
	}
}

// Execute runs fn inside the operation envelope. Mutating request types
// acquire the repository lock and capture a snapshot first; when fn fails,
// HEAD is moved back to the snapshot with a mixed reset before the failure
// is returned. Validation errors never enter the restore path: they are
// raised before anything is written.
//
// Execute always returns a Result; it never panics through.
func (m *Manager) Execute(ctx context.Context, req Request, fn Fn) Result {
	op := &types.Operation{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Command:     req.Command,
		Args:        req.Args,
		Description: req.Description,
		Status:      types.StatusPending,
		Undoable:    undoable(req.Type),
		StartedAt:   time.Now(),
	}
	logger := m.logger.With().
		Str("operation_id", op.ID).
		Str("type", string(op.Type)).
		Logger()

	mutating := req.Type.Mutating()
	if mutating {
		if err := m.locker.Acquire(); err != nil {
			logger.Warn().Err(err).Msg("Repository lock unavailable")
			return Result{Err: err, Operation: op}
		}
		defer func() {
			if err := m.locker.Release(); err != nil {
				logger.Warn().Err(err).Msg("Failed to release repository lock")
			}
		}()

		snapshot, err := m.snapshot(ctx)
		if err != nil {
			return Result{Err: err, Operation: op}
		}
		op.Snapshot = snapshot
		logger.Debug().
			Str("head", snapshot.HeadCommit).
			Str("branch", snapshot.Branch).
			Msg("Snapshot captured")
	}

	op.Status = types.StatusRunning
	value, err := fn(ctx, op)
	op.CompletedAt = time.Now()

	if err != nil {
		result := Result{Err: err, Value: value, Operation: op}
		if mutating && op.Snapshot != nil && !errors.IsErrorCode(err, errors.ErrValidation) {
			result.Restored = m.restore(ctx, op, logger)
		}
		op.Status = types.StatusFailed
		op.Error = err.Error()
		m.record(op, logger)
		logger.Error().Err(err).Bool("restored", result.Restored).Msg("Operation failed")
		return result
	}

	op.Status = types.StatusCompleted
	if mutating {
		m.fillResultHead(ctx, op)
	}
	m.record(op, logger)
	logger.Info().Str("command", op.Command).Msg("Operation completed")
	return Result{Success: true, Value: value, Operation: op}
}

// snapshot records where the repository stands before anything moves.
func (m *Manager) snapshot(ctx context.Context) (*types.Snapshot, error) {
	head, err := m.git.Head(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrGit, "failed to snapshot repository state")
	}
	branch, err := m.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	return &types.Snapshot{
		RepoPath:   m.git.Root(),
		HeadCommit: head.Hash,
		Branch:     branch,
		CreatedAt:  time.Now(),
	}, nil
}

// restore moves HEAD back to the snapshot after a failed operation. A mixed
// reset keeps whatever the user had in the working tree. When the command's
// own rollback already restored (migrations reset hard to their backup),
// this converges to a no-op. Restore runs even when ctx is cancelled.
func (m *Manager) restore(ctx context.Context, op *types.Operation, logger zerolog.Logger) bool {
	if err := m.git.ResetMixed(context.WithoutCancel(ctx), op.Snapshot.HeadCommit); err != nil {
		logger.Error().Err(err).Str("head", op.Snapshot.HeadCommit).Msg("Snapshot restore failed")
		return false
	}
	logger.Info().Str("head", op.Snapshot.HeadCommit).Msg("Restored to snapshot")
	return true
}

// fillResultHead guarantees a completed mutating operation records the HEAD
// it produced. Undo safety compares against it later.
func (m *Manager) fillResultHead(ctx context.Context, op *types.Operation) {
	if op.Result == nil {
		op.Result = &types.OperationResult{}
	}
	if op.Result.ResultHead != "" {
		return
	}
	head, err := m.git.Head(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Could not record result head")
		return
	}
	op.Result.ResultHead = head.Hash
}

// record appends the operation to the ledger. A completed rewrite must not
// be reported as failed because the bookkeeping write failed, so append
// errors are logged and swallowed.
func (m *Manager) record(op *types.Operation, logger zerolog.Logger) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Append(*op); err != nil {
		logger.Error().Err(err).Msg("Failed to append operation to history")
	}
}

// undoable says which operation types an undo can later reverse. An undo is
// not itself undoable.
func undoable(t types.OperationType) bool {
	switch t {
	case types.OperationCommit, types.OperationMigrate, types.OperationBatch:
		return true
	default:
		return false
	}
}
