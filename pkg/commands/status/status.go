// Package status reports the repository and the most recent recorded
// operation. Read-only: nothing is locked and nothing is written.
package status

import (
	"context"

	"github.com/histofy/histofy/pkg/commands/internal"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/output"
)

// Options holds options for the status command.
type Options struct {
	RepoPath string

	// Git injects a repository backend for testing; nil opens RepoPath.
	Git git.Git
}

// Run assembles the status view.
func Run(ctx context.Context, opts Options) (*output.StatusView, error) {
	logger := logging.GetLogger("commands.status")

	env, err := internal.NewEnv(opts.RepoPath, opts.Git)
	if err != nil {
		return nil, err
	}

	st, err := env.Git.Status(ctx)
	if err != nil {
		return nil, err
	}

	view := &output.StatusView{
		Branch:    st.Branch,
		Head:      st.Head,
		Detached:  st.Detached,
		Staged:    st.Staged,
		Unstaged:  st.Unstaged,
		Untracked: st.Untracked,
	}

	// A broken ledger should not hide the repository state.
	ops, err := env.History.GetHistory(history.Filter{Limit: 1})
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read operation history")
	} else if len(ops) > 0 {
		view.LastOperation = &ops[0]
	}

	return view, nil
}
