// Package internal wires the pieces every histofy command needs: the
// repository backend, configuration, the operation manager and the
// history ledger. Commands build an Env once and hang their work off it.
package internal

import (
	"github.com/histofy/histofy/pkg/config"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/lock"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/paths"
)

// Env carries the shared dependencies of one command invocation.
type Env struct {
	Paths   paths.Paths
	Config  *config.Config
	Git     git.Git
	Store   history.Store
	Manager *operations.Manager
	History *history.History
}

// NewEnv builds a command environment. A non-nil g is used as-is, which
// is how tests inject in-memory repositories; otherwise the repository at
// repoPath is opened.
func NewEnv(repoPath string, g git.Git) (*Env, error) {
	if g == nil {
		opened, err := git.Open(repoPath)
		if err != nil {
			return nil, err
		}
		g = opened
	}

	p, err := paths.New(g.Root())
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfiguration, "failed to load configuration")
	}

	store := history.NewFileStore(p)
	manager := operations.NewManager(g, lock.New(p), store)

	return &Env{
		Paths:   p,
		Config:  cfg,
		Git:     g,
		Store:   store,
		Manager: manager,
		History: history.New(store, g),
	}, nil
}
