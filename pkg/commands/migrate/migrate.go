// Package migrate plans and executes commit date migrations. Without
// Execute it is a pure preview; with Execute the rewrite runs inside the
// operation envelope with a backup branch and rollback on failure.
package migrate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/histofy/histofy/pkg/commands/internal"
	"github.com/histofy/histofy/pkg/dryrun"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/migration"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/planner"
	"github.com/histofy/histofy/pkg/types"
)

// Options holds options for the migrate command.
type Options struct {
	RepoPath string
	// Range selects the commits to migrate: "a..b", a bare rev, or a bare
	// integer N for the last N commits.
	Range string
	// ToDate is the first day of the target window, YYYY-MM-DD.
	ToDate string
	// Spread is the number of days to distribute across; 0 takes the
	// configured default.
	Spread int
	// StartTime is the first slot of each day, HH:MM; empty takes the
	// configured default.
	StartTime string
	// Spacing separates commits within a day, in minutes; 0 takes the
	// configured default.
	Spacing int
	// Execute performs the rewrite. Without it the command previews.
	Execute bool
	// AutoResolve resolves conflicts without prompting: "theirs" or
	// "ours". Other values are ignored with a warning.
	AutoResolve string
	NoBackup    bool
	NoRollback  bool
	Push        bool
	DryRun      bool

	// Location anchors plan timestamps; nil means local time.
	Location *time.Location
	// Git injects a repository backend for testing; nil opens RepoPath.
	Git git.Git
	// OnConflict is consulted for conflicts when AutoResolve is unset.
	OnConflict migration.ConflictHandler
	// Progress receives stage descriptions and percentages.
	Progress func(stage string, percent int)
}

// Result is what the migrate command produced. Migration is set whenever
// the executor ran, including failures, so callers can render the
// rollback outcome.
type Result struct {
	Plan        *types.MigrationPlan
	Migration   *migration.Result
	Preview     *dryrun.Manager
	OperationID string
	Executed    bool
	Pushed      bool
}

// Run plans a migration and, when requested, executes it. A failed push
// after a completed local rewrite returns the result together with the
// push error; the rewrite stands.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.migrate")

	if opts.Range == "" {
		return nil, errors.NewValidationError("range", "commit range is required")
	}
	if opts.ToDate == "" {
		return nil, errors.NewValidationError("to-date", "target date is required")
	}

	env, err := internal.NewEnv(opts.RepoPath, opts.Git)
	if err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	targetDate, err := time.ParseInLocation(planner.DateLayout, opts.ToDate, loc)
	if err != nil {
		return nil, errors.NewValidationError("to-date", "invalid date %q, expected YYYY-MM-DD", opts.ToDate)
	}

	spread := opts.Spread
	if spread <= 0 {
		spread = env.Config.Migration.SpreadDays
	}
	startTime := opts.StartTime
	if startTime == "" {
		startTime = env.Config.Migration.StartTime
	}
	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = env.Config.Migration.SpacingMinutes
	}

	// Invalid auto-resolve values are ignored rather than fatal; the
	// rewrite then falls back to the interactive handler.
	autoResolve, err := migration.ParseAutoResolve(opts.AutoResolve)
	if err != nil {
		logger.Warn().Str("value", opts.AutoResolve).Msg("Ignoring invalid auto-resolve value")
		autoResolve = migration.AutoResolveNone
	}

	executor := migration.NewExecutor(env.Git)
	plan, err := executor.Plan(ctx, opts.Range, planner.Options{
		TargetDate:     targetDate,
		SpreadDays:     spread,
		StartTime:      startTime,
		SpacingMinutes: spacing,
		PreserveOrder:  true,
	})
	if err != nil {
		return nil, err
	}

	createBackup := env.Config.Migration.CreateBackup && !opts.NoBackup
	rollback := env.Config.Migration.RollbackOnFailure && !opts.NoRollback

	if !opts.Execute || opts.DryRun {
		preview := dryrun.NewManager()
		preview.AddOperations(dryrun.ForMigration(plan, createBackup, opts.Push))
		for _, warn := range plan.Warnings {
			preview.AddWarning("%s", warn)
		}
		return &Result{Plan: plan, Preview: preview}, nil
	}

	logger.Info().
		Int("commits", plan.CommitCount()).
		Str("target_date", plan.TargetDate).
		Int("spread_days", plan.SpreadDays).
		Bool("backup", createBackup).
		Bool("push", opts.Push).
		Msg("Executing migration")

	var (
		migResult *migration.Result
		pushErr   error
	)
	res := env.Manager.Execute(ctx, operations.Request{
		Type:        types.OperationMigrate,
		Command:     "migrate",
		Args:        commandArgs(opts, plan),
		Description: fmt.Sprintf("migrate %d commit(s) to %s", plan.CommitCount(), plan.TargetDate),
	}, func(ctx context.Context, op *types.Operation) (any, error) {
		// Without a backup branch there is nothing for undo to restore
		// from, so the operation is recorded as not undoable.
		if !createBackup {
			op.Undoable = false
		}

		r, err := executor.Execute(ctx, plan, migration.Options{
			OperationID:       op.ID,
			CreateBackup:      createBackup,
			RollbackOnFailure: rollback,
			AutoResolve:       autoResolve,
			OnConflict:        opts.OnConflict,
			Push:              opts.Push,
			PushRetries:       env.Config.Push.Retries,
			PushBackoff:       env.Config.Push.Backoff(),
			Progress:          opts.Progress,
			Location:          loc,
		})
		migResult = r
		if r != nil {
			if op.Snapshot != nil && r.BackupBranch != "" {
				op.Snapshot.BackupBranch = r.BackupBranch
			}
			op.Result = &types.OperationResult{
				MigratedCount: r.MigratedCount,
				BackupBranch:  r.BackupBranch,
				ResultHead:    r.FinalHead,
			}
		}
		if err != nil {
			// The executor completed the local rewrite and only the push
			// failed. Reporting that as an operation failure would
			// restore the snapshot and silently drop the rewrite.
			if r != nil && r.Success {
				pushErr = err
				return r, nil
			}
			return nil, err
		}
		if r != nil && opts.Push {
			op.Result.Pushed = true
		}
		return r, nil
	})
	if res.Err != nil {
		return &Result{
			Plan:        plan,
			Migration:   migResult,
			OperationID: res.Operation.ID,
			Executed:    true,
		}, res.Err
	}

	result := &Result{
		Plan:        plan,
		Migration:   migResult,
		OperationID: res.Operation.ID,
		Executed:    true,
		Pushed:      opts.Push && pushErr == nil,
	}
	if pushErr != nil {
		return result, pushErr
	}
	return result, nil
}

// commandArgs reconstructs the invocation for the history ledger.
func commandArgs(opts Options, plan *types.MigrationPlan) []string {
	args := []string{opts.Range, "--to-date", plan.TargetDate,
		"--spread", strconv.Itoa(plan.SpreadDays),
		"--start-time", plan.StartTime,
		"--execute"}
	if opts.NoBackup {
		args = append(args, "--no-backup")
	}
	if opts.NoRollback {
		args = append(args, "--no-rollback")
	}
	if opts.AutoResolve != "" {
		args = append(args, "--auto-resolve", opts.AutoResolve)
	}
	if opts.Push {
		args = append(args, "--push")
	}
	return args
}
