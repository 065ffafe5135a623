// Package migration plans and executes commit-date rewrites. Execution is
// a state machine wrapped around the git backend: a backup branch is taken
// before anything moves, every failure after that point funnels through
// the rollback path, and the rewritten history is validated against the
// original trees before the operation reports success.
package migration

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/planner"
	"github.com/histofy/histofy/pkg/types"
)

// State names a phase of a running migration.
type State string

const (
	StatePlanning       State = "PLANNING"
	StateBackupCreated  State = "BACKUP_CREATED"
	StateRewriting      State = "REWRITING"
	StateConflict       State = "CONFLICT"
	StateValidating     State = "VALIDATING"
	StateCompleted      State = "COMPLETED"
	StateAborted        State = "ABORTED"
	StateRolledBack     State = "ROLLED_BACK"
	StateRollbackFailed State = "ROLLBACK_FAILED"
)

// AutoResolve names the automatic conflict policies.
type AutoResolve string

const (
	AutoResolveNone   AutoResolve = ""
	AutoResolveTheirs AutoResolve = "theirs"
	AutoResolveOurs   AutoResolve = "ours"
)

// ParseAutoResolve validates a --auto-resolve flag value.
func ParseAutoResolve(s string) (AutoResolve, error) {
	switch AutoResolve(s) {
	case AutoResolveNone, AutoResolveTheirs, AutoResolveOurs:
		return AutoResolve(s), nil
	}
	return AutoResolveNone, errors.NewValidationError("auto-resolve",
		"invalid value %q, expected theirs or ours", s)
}

// ConflictHandler decides what to do with a conflict when no automatic
// policy is configured.
type ConflictHandler func(c git.Conflict) git.Resolution

// Options controls one Execute run.
type Options struct {
	// OperationID names the surrounding operation; it prefixes the backup
	// branch. A fresh id is generated when empty.
	OperationID string
	// CreateBackup takes a backup branch before rewriting. On by default
	// in config; turning it off makes the rewrite irreversible.
	CreateBackup bool
	// RollbackOnFailure restores the backup when the rewrite fails.
	RollbackOnFailure bool
	// AutoResolve resolves conflicts without consulting OnConflict.
	AutoResolve AutoResolve
	// OnConflict is asked when AutoResolve is none. Nil aborts.
	OnConflict ConflictHandler
	// Push force-pushes the rewritten branch after completion.
	Push bool
	// PushRetries is how many times a retryable push failure is retried.
	PushRetries int
	// PushBackoff is the first retry delay; it doubles per attempt.
	PushBackoff time.Duration
	// Progress receives human-readable updates. Percent is -1 during
	// phases with no meaningful ratio. Must not block.
	Progress func(message string, percent int)
	// Location interprets the plan's wall-clock dates. Defaults to the
	// system zone.
	Location *time.Location
}

// Result reports what a migration run did, including the partial truth
// when it failed.
type Result struct {
	Success              bool
	MigratedCount        int
	BackupBranch         string
	ConflictsEncountered int
	Aborted              bool
	RolledBack           bool
	RollbackFailed       bool
	IntegrityWarnings    []string
	FinalHead            string
}

// Executor runs migrations against one repository.
type Executor struct {
	git    git.Git
	logger zerolog.Logger
}

// NewExecutor returns an Executor for the given backend.
func NewExecutor(g git.Git) *Executor {
	return &Executor{
		git:    g,
		logger: logging.GetLogger("migration"),
	}
}

// Plan resolves a commit range and distributes the commits over the
// target window. Read-only; safe on a dirty working tree.
func (e *Executor) Plan(ctx context.Context, rangeExpr string, opts planner.Options) (*types.MigrationPlan, error) {
	commits, err := e.git.ResolveRange(ctx, rangeExpr)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Plan(commits, opts)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Int("commits", plan.CommitCount()).
		Str("target_date", plan.TargetDate).
		Int("spread_days", plan.SpreadDays).
		Msg("Migration planned")
	return plan, nil
}

// BackupBranchName builds the branch name a migration parks the original
// head under.
func BackupBranchName(operationID string, now time.Time) string {
	short := operationID
	if short == "" {
		short = uuid.NewString()
	}
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("histofy-backup-%s-%d", short, now.Unix())
}

// Execute runs a plan through the state machine. The returned Result is
// valid whenever it is non-nil, also on error.
func (e *Executor) Execute(ctx context.Context, plan *types.MigrationPlan, opts Options) (*Result, error) {
	state := StatePlanning
	result := &Result{}
	report := func(msg string, pct int) {
		if opts.Progress != nil {
			opts.Progress(msg, pct)
		}
	}
	transition := func(to State) {
		e.logger.Debug().Str("from", string(state)).Str("to", string(to)).Msg("State transition")
		state = to
	}

	report("Preparing migration", -1)
	updates, originalHead, err := e.prepare(ctx, plan, opts)
	if err != nil {
		return nil, err
	}

	// Backup before anything moves. A failure here aborts cleanly; there
	// is nothing to roll back yet.
	if opts.CreateBackup {
		name := BackupBranchName(opts.OperationID, time.Now())
		if err := e.git.CreateBranch(ctx, name, originalHead); err != nil {
			transition(StateAborted)
			result.Aborted = true
			return result, errors.Wrap(err, errors.ErrGit, "failed to create backup branch")
		}
		result.BackupBranch = name
		e.logger.Info().Str("branch", name).Str("head", originalHead).Msg("Backup branch created")
		report(fmt.Sprintf("Backup branch created: %s", name), -1)
	}
	transition(StateBackupCreated)

	// The rewrite touches every commit from the oldest dated one up to
	// HEAD, so progress is measured against that chain.
	total, err := e.chainLength(ctx, plan)
	if err != nil {
		return e.failWith(ctx, &state, result, opts, report, err)
	}

	transition(StateRewriting)
	planned := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		planned[u.Hash] = struct{}{}
	}

	rebaseResult, err := e.git.RebaseWithDates(ctx, updates, git.RebaseOptions{
		OnRewrite: func(index int, oldHash, newHash string) {
			if _, ok := planned[oldHash]; ok {
				result.MigratedCount++
			}
			report(fmt.Sprintf("Rewriting commits (%d/%d)", index+1, total), (index+1)*100/total)
		},
		OnConflict: func(c git.Conflict) git.Resolution {
			transition(StateConflict)
			result.ConflictsEncountered++
			resolution := e.resolveConflict(c, opts)
			if resolution != git.ResolutionAbort {
				transition(StateRewriting)
			}
			return resolution
		},
	})
	if err != nil {
		// A handler abort keeps HEAD where it was; the backup stays for
		// inspection and no rollback is needed.
		if stderrors.Is(err, git.ErrRebaseAborted) {
			transition(StateAborted)
			result.Aborted = true
			result.FinalHead = originalHead
			e.logger.Warn().Int("conflicts", result.ConflictsEncountered).Msg("Migration aborted on conflict")
			return result, errors.Wrap(err, errors.ErrGit, "migration aborted").
				WithDetail("subcommand", "rebase")
		}
		return e.failWith(ctx, &state, result, opts, report, err)
	}

	transition(StateValidating)
	report("Validating rewritten history", -1)
	result.IntegrityWarnings = e.validate(ctx, plan, rebaseResult)
	result.FinalHead = rebaseResult.NewHead
	result.MigratedCount = plan.CommitCount()

	transition(StateCompleted)
	result.Success = true
	e.logger.Info().
		Int("migrated", result.MigratedCount).
		Str("new_head", result.FinalHead).
		Int("integrity_warnings", len(result.IntegrityWarnings)).
		Msg("Migration completed")

	// Push failures never unwind a completed local rewrite; the caller
	// decides how loudly to report them.
	if opts.Push {
		report("Pushing rewritten history", -1)
		if err := e.pushWithRetry(ctx, opts); err != nil {
			return result, err
		}
	}

	report("Migration complete", 100)
	return result, nil
}

// prepare validates the plan against the live repository and converts it
// to date updates.
func (e *Executor) prepare(ctx context.Context, plan *types.MigrationPlan, opts Options) ([]git.DateUpdate, string, error) {
	if plan == nil || plan.CommitCount() == 0 {
		return nil, "", errors.NewValidationError("plan", "migration plan is empty")
	}

	status, err := e.git.Status(ctx)
	if err != nil {
		return nil, "", err
	}
	if !status.Clean() {
		return nil, "", errors.NewValidationError("worktree",
			"working tree has uncommitted changes; commit or stash them first")
	}
	if _, err := e.git.CurrentBranch(ctx); err != nil {
		return nil, "", err
	}
	head, err := e.git.Head(ctx)
	if err != nil {
		return nil, "", err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	updates := make([]git.DateUpdate, 0, plan.CommitCount())
	for _, m := range plan.Commits {
		when, err := m.When(loc)
		if err != nil {
			return nil, "", errors.NewValidationError("plan",
				"invalid timestamp %s %s for commit %s", m.NewDate, m.NewTime, m.OriginalHash)
		}
		// A plan can outlive the history it was made from.
		if _, err := e.git.ResolveRange(ctx, m.OriginalHash); err != nil {
			return nil, "", errors.NewValidationError("plan",
				"commit %s from the plan no longer exists; plan again", m.OriginalHash)
		}
		updates = append(updates, git.DateUpdate{Hash: m.OriginalHash, When: when})
	}
	return updates, head.Hash, nil
}

// chainLength counts the commits the rewrite will touch: the oldest dated
// commit plus everything above it.
func (e *Executor) chainLength(ctx context.Context, plan *types.MigrationPlan) (int, error) {
	oldest := plan.Commits[0].OriginalHash
	above, err := e.git.ResolveRange(ctx, oldest+"..HEAD")
	if err != nil {
		return 0, err
	}
	return len(above) + 1, nil
}

// resolveConflict applies the configured policy, falling back to the
// caller's handler, falling back to abort.
func (e *Executor) resolveConflict(c git.Conflict, opts Options) git.Resolution {
	log := e.logger.Warn().
		Str("commit", c.Commit).
		Strs("files", c.Files)

	switch opts.AutoResolve {
	case AutoResolveTheirs:
		log.Str("resolution", "theirs").Msg("Conflict auto-resolved")
		return git.ResolutionTheirs
	case AutoResolveOurs:
		log.Str("resolution", "ours").Msg("Conflict auto-resolved")
		return git.ResolutionOurs
	}

	if opts.OnConflict != nil {
		resolution := opts.OnConflict(c)
		log.Int("resolution", int(resolution)).Msg("Conflict resolved by handler")
		return resolution
	}
	log.Str("resolution", "abort").Msg("Conflict with no handler")
	return git.ResolutionAbort
}

// failWith is the shared failure path after the backup point: it tags
// context cancellation and rolls back unless the caller disabled it.
func (e *Executor) failWith(ctx context.Context, state *State, result *Result, opts Options, report func(string, int), cause error) (*Result, error) {
	if stderrors.Is(cause, context.Canceled) {
		cause = errors.NewCancelled(errors.CancelUserInterrupt, "migration interrupted")
	} else if stderrors.Is(cause, context.DeadlineExceeded) {
		cause = errors.NewCancelled(errors.CancelTimeout, "migration timed out")
	}

	if !opts.RollbackOnFailure || result.BackupBranch == "" {
		*state = StateAborted
		result.Aborted = true
		e.logger.Error().Err(cause).Msg("Migration failed, no rollback configured")
		return result, cause
	}

	report("Rolling back to backup", -1)
	e.logger.Warn().Err(cause).Str("backup", result.BackupBranch).Msg("Migration failed, rolling back")

	// The original context may already be cancelled; the rollback must
	// still run.
	if err := e.git.ResetHard(context.WithoutCancel(ctx), result.BackupBranch); err != nil {
		*state = StateRollbackFailed
		result.RollbackFailed = true
		e.logger.Error().Err(err).Str("backup", result.BackupBranch).Msg("Rollback failed, backup branch retained")
		return result, errors.NewRollbackFailed(result.BackupBranch, cause)
	}

	*state = StateRolledBack
	result.RolledBack = true
	result.MigratedCount = 0
	e.logger.Info().Str("backup", result.BackupBranch).Msg("Rolled back to backup")
	return result, cause
}

// validate diffs every migrated commit's tree against its replacement.
// Mismatches are reported, not fatal: the backup still exists and the
// user decides.
func (e *Executor) validate(ctx context.Context, plan *types.MigrationPlan, res *git.RebaseResult) []string {
	var mu sync.Mutex
	var warnings []string
	add := func(w string) {
		mu.Lock()
		warnings = append(warnings, w)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(4)
	for _, m := range plan.Commits {
		newHash, ok := res.Rewritten[m.OriginalHash]
		if !ok {
			add(fmt.Sprintf("commit %s has no rewritten counterpart", m.OriginalHash))
			continue
		}
		g.Go(func() error {
			changed, err := e.git.DiffTrees(gctx, m.OriginalHash, newHash)
			if err != nil {
				add(fmt.Sprintf("could not validate %s: %v", m.OriginalHash, err))
				return nil
			}
			if len(changed) > 0 {
				add(fmt.Sprintf("tree changed between %s and %s: %d path(s)", m.OriginalHash, newHash, len(changed)))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(warnings)
	return warnings
}

// pushWithRetry force-pushes the rewritten branch, retrying retryable
// network failures with doubling backoff.
func (e *Executor) pushWithRetry(ctx context.Context, opts Options) error {
	backoff := opts.PushBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= opts.PushRetries+1; attempt++ {
		err = e.git.Push(ctx, git.PushOptions{Force: true})
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) || attempt > opts.PushRetries {
			break
		}

		delay := backoff * (1 << (attempt - 1))
		e.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Push failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NewCancelled(errors.CancelUserInterrupt, "push interrupted")
		}
	}
	e.logger.Error().Err(err).Msg("Push failed")
	return err
}
