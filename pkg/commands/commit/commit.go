// Package commit creates commits with explicit author and committer
// dates, recorded as undoable operations.
package commit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/histofy/histofy/pkg/commands/internal"
	"github.com/histofy/histofy/pkg/dryrun"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/planner"
	"github.com/histofy/histofy/pkg/types"
)

// Options holds options for the commit command.
type Options struct {
	RepoPath string
	Message  string
	// Date is the commit date, YYYY-MM-DD. Empty means today.
	Date string
	// Time is the commit time, HH:MM. Empty falls back to the configured
	// default, then to the current clock time.
	Time       string
	AddAll     bool
	Files      []string
	Author     string // "Name <email>"
	AllowEmpty bool
	Push       bool
	DryRun     bool

	// Location resolves the date and time; nil means local time.
	Location *time.Location
	// Now fixes the clock for date/time fallbacks; zero means time.Now.
	Now time.Time
	// Git injects a repository backend for testing; nil opens RepoPath.
	Git git.Git
}

// Result is what the commit command produced.
type Result struct {
	Commit      *git.Commit
	Pushed      bool
	OperationID string
	// Preview holds the simulated steps of a dry run; nil otherwise.
	Preview *dryrun.Manager
}

// Run creates one dated commit. A failed push after a successful commit
// returns the result together with the push error; the commit stands.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.commit")

	if strings.TrimSpace(opts.Message) == "" {
		return nil, errors.NewValidationError("message", "commit message is required")
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

	date, timeOfDay, when, err := resolveWhen(opts.Date, opts.Time, env.Config.Commit.DefaultTime, now.In(loc), loc)
	if err != nil {
		return nil, err
	}

	var author *git.Signature
	if opts.Author != "" {
		sig, err := git.ParseSignature(opts.Author)
		if err != nil {
			return nil, errors.NewValidationError("author", "%v", err)
		}
		author = &sig
	}

	addAll := opts.AddAll || env.Config.Commit.AutoAdd

	if opts.DryRun {
		preview := dryrun.NewManager()
		preview.AddOperations(dryrun.ForCommit(dryrun.CommitPreview{
			Message: opts.Message,
			Date:    date,
			Time:    timeOfDay,
			AddAll:  addAll,
			Files:   opts.Files,
			Push:    opts.Push,
		}))
		return &Result{Preview: preview}, nil
	}

	logger.Info().
		Str("date", date).
		Str("time", timeOfDay).
		Bool("add_all", addAll).
		Bool("push", opts.Push).
		Msg("Creating dated commit")

	var (
		created *git.Commit
		pushErr error
	)
	res := env.Manager.Execute(ctx, operations.Request{
		Type:        types.OperationCommit,
		Command:     "commit",
		Args:        commandArgs(opts, date, timeOfDay),
		Description: fmt.Sprintf("commit %q dated %s %s", summary(opts.Message), date, timeOfDay),
	}, func(ctx context.Context, op *types.Operation) (any, error) {
		c, err := env.Git.CommitWithDate(ctx, git.CommitInput{
			Message:    opts.Message,
			When:       when,
			Author:     author,
			AddAll:     addAll,
			Files:      opts.Files,
			AllowEmpty: opts.AllowEmpty,
		})
		if err != nil {
			return nil, err
		}
		created = c
		op.Result = &types.OperationResult{CommitHashes: []string{c.Hash}}

		// A push failure must not fail the operation: the commit exists
		// and restoring the snapshot would silently drop it.
		if opts.Push {
			if err := env.Git.Push(ctx, git.PushOptions{}); err != nil {
				pushErr = err
				logger.Warn().Err(err).Msg("Push failed after commit")
			} else {
				op.Result.Pushed = true
			}
		}
		return c, nil
	})
	if res.Err != nil {
		return nil, res.Err
	}

	result := &Result{
		Commit:      created,
		Pushed:      opts.Push && pushErr == nil,
		OperationID: res.Operation.ID,
	}
	if pushErr != nil {
		return result, pushErr
	}
	return result, nil
}

// resolveWhen fills date and time fallbacks and parses the pair in loc.
func resolveWhen(date, timeOfDay, defaultTime string, now time.Time, loc *time.Location) (string, string, time.Time, error) {
	if date == "" {
		date = now.Format(planner.DateLayout)
	}
	if timeOfDay == "" {
		timeOfDay = defaultTime
	}
	if timeOfDay == "" {
		timeOfDay = now.Format(planner.TimeLayout)
	}

	if _, err := time.ParseInLocation(planner.DateLayout, date, loc); err != nil {
		return "", "", time.Time{}, errors.NewValidationError("date", "invalid date %q, expected YYYY-MM-DD", date)
	}
	when, err := time.ParseInLocation(planner.DateLayout+" "+planner.TimeLayout, date+" "+timeOfDay, loc)
	if err != nil {
		return "", "", time.Time{}, errors.NewValidationError("time", "invalid time %q, expected HH:MM", timeOfDay)
	}
	return date, timeOfDay, when, nil
}

// commandArgs reconstructs the invocation for the history ledger.
func commandArgs(opts Options, date, timeOfDay string) []string {
	args := []string{"-m", summary(opts.Message), "--date", date, "--time", timeOfDay}
	if opts.AddAll {
		args = append(args, "--add-all")
	}
	args = append(args, opts.Files...)
	if opts.Push {
		args = append(args, "--push")
	}
	return args
}

// summary returns the first line of a commit message.
func summary(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}
