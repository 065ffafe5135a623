// Package batch creates a sequence of dated commits from a YAML plan
// file, wrapped in a single undoable operation.
package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/histofy/histofy/pkg/commands/internal"
	"github.com/histofy/histofy/pkg/dryrun"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/planner"
	"github.com/histofy/histofy/pkg/types"
)

// Options holds options for the batch command.
type Options struct {
	RepoPath string
	// File is the YAML plan to execute.
	File string
	// Entries bypasses File when set, which is how tests inject plans.
	Entries []types.BatchEntry
	Push    bool
	DryRun  bool

	// Location resolves entry timestamps; nil means local time.
	Location *time.Location
	// Now fixes the clock for time fallbacks; zero means time.Now.
	Now time.Time
	// Git injects a repository backend for testing; nil opens RepoPath.
	Git git.Git
}

// Result is what the batch command produced.
type Result struct {
	Commits     []*git.Commit
	Pushed      bool
	OperationID string
	Preview     *dryrun.Manager
}

// LoadPlan reads a YAML plan file: a list of {date, time, message,
// files} entries.
func LoadPlan(path string) ([]types.BatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrValidation, "cannot read plan file %s", path)
	}
	var entries []types.BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, errors.ErrValidation, "plan file %s is not a list of commits", path)
	}
	return entries, nil
}

// Run commits every entry of the plan in order. The whole batch is one
// operation: a failure mid-way restores the snapshot, dropping the
// partial commits. A failed push after a completed batch returns the
// result together with the push error; the commits stand.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.batch")

	entries := opts.Entries
	if entries == nil {
		if opts.File == "" {
			return nil, errors.NewValidationError("file", "a plan file is required")
		}
		loaded, err := LoadPlan(opts.File)
		if err != nil {
			return nil, err
		}
		entries = loaded
	}
	if len(entries) == 0 {
		return nil, errors.NewValidationError("file", "the plan has no commits")
	}

	env, err := internal.NewEnv(opts.RepoPath, opts.Git)
	if err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	inputs, err := buildInputs(entries, env.Config.Commit.DefaultTime, now.In(loc), loc)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		preview := dryrun.NewManager()
		preview.AddOperations(dryrun.ForBatch(entries, opts.Push))
		return &Result{Preview: preview}, nil
	}

	logger.Info().
		Int("commits", len(inputs)).
		Bool("push", opts.Push).
		Msg("Executing batch plan")

	var (
		created []*git.Commit
		pushErr error
	)
	res := env.Manager.Execute(ctx, operations.Request{
		Type:        types.OperationBatch,
		Command:     "batch",
		Args:        commandArgs(opts, len(entries)),
		Description: fmt.Sprintf("batch of %d commit(s) from %s to %s", len(entries), entries[0].Date, entries[len(entries)-1].Date),
	}, func(ctx context.Context, op *types.Operation) (any, error) {
		hashes := make([]string, 0, len(inputs))
		for i, input := range inputs {
			c, err := env.Git.CommitWithDate(ctx, input)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrGit, "entry %d (%s) failed", i+1, entries[i].Date)
			}
			created = append(created, c)
			hashes = append(hashes, c.Hash)
		}
		op.Result = &types.OperationResult{CommitHashes: hashes}

		// A push failure must not fail the operation: the commits exist
		// and restoring the snapshot would silently drop them.
		if opts.Push {
			if err := env.Git.Push(ctx, git.PushOptions{}); err != nil {
				pushErr = err
				logger.Warn().Err(err).Msg("Push failed after batch")
			} else {
				op.Result.Pushed = true
			}
		}
		return created, nil
	})
	if res.Err != nil {
		return nil, res.Err
	}

	result := &Result{
		Commits:     created,
		Pushed:      opts.Push && pushErr == nil,
		OperationID: res.Operation.ID,
	}
	if pushErr != nil {
		return result, pushErr
	}
	return result, nil
}

// buildInputs validates every entry before anything is committed, so a
// bad entry fails the batch with no repository writes at all.
func buildInputs(entries []types.BatchEntry, defaultTime string, now time.Time, loc *time.Location) ([]git.CommitInput, error) {
	inputs := make([]git.CommitInput, 0, len(entries))
	for i, entry := range entries {
		if entry.Message == "" {
			return nil, errors.NewValidationError("message", "entry %d has no message", i+1)
		}
		timeOfDay := entry.Time
		if timeOfDay == "" {
			timeOfDay = defaultTime
		}
		if timeOfDay == "" {
			timeOfDay = now.Format(planner.TimeLayout)
		}
		when, err := time.ParseInLocation(planner.DateLayout+" "+planner.TimeLayout, entry.Date+" "+timeOfDay, loc)
		if err != nil {
			return nil, errors.NewValidationError("date", "entry %d has invalid date/time %q %q", i+1, entry.Date, timeOfDay)
		}
		inputs = append(inputs, git.CommitInput{
			Message: entry.Message,
			When:    when,
			Files:   entry.Files,
			// Entries without files produce calendar-only commits.
			AllowEmpty: len(entry.Files) == 0,
		})
	}
	return inputs, nil
}

// commandArgs reconstructs the invocation for the history ledger.
func commandArgs(opts Options, count int) []string {
	args := []string{"-f", opts.File}
	if opts.File == "" {
		args = []string{"-f", fmt.Sprintf("(%d inline entries)", count)}
	}
	if opts.Push {
		args = append(args, "--push")
	}
	return args
}
