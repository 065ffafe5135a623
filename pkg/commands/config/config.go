// Package config reads and writes histofy configuration keys. Sets are
// recorded in the ledger as non-mutating operations; the repository
// itself is never touched, so the command also works outside one.
package config

import (
	"context"
	"sort"

	cfg "github.com/histofy/histofy/pkg/config"
	"github.com/histofy/histofy/pkg/dryrun"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/lock"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/operations"
	"github.com/histofy/histofy/pkg/paths"
	"github.com/histofy/histofy/pkg/types"
)

// Entry is one configuration key with its effective value.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Get returns the effective value of one key.
func Get(repoPath, key string) (string, error) {
	p, err := paths.New(repoPath)
	if err != nil {
		return "", err
	}
	return cfg.Get(p, key)
}

// List returns every recognized key with its effective value, sorted.
func List(repoPath string) ([]Entry, error) {
	p, err := paths.New(repoPath)
	if err != nil {
		return nil, err
	}

	keys := cfg.RecognizedKeys()
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		value, err := cfg.Get(p, key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}

// SetOptions holds options for config set.
type SetOptions struct {
	RepoPath string
	Key      string
	Value    string
	DryRun   bool
}

// SetResult is what config set produced.
type SetResult struct {
	OperationID string
	Preview     *dryrun.Manager
}

// Set writes one key to the user configuration file and records the
// change in the ledger.
func Set(ctx context.Context, opts SetOptions) (*SetResult, error) {
	logger := logging.GetLogger("commands.config")

	p, err := paths.New(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		preview := dryrun.NewManager()
		preview.AddOperation(dryrun.ForConfig(opts.Key, opts.Value))
		return &SetResult{Preview: preview}, nil
	}

	logger.Info().Str("key", opts.Key).Msg("Setting configuration key")

	// Config operations are non-mutating, so the manager never opens the
	// repository for them; no backend is wired.
	store := history.NewFileStore(p)
	manager := operations.NewManager(nil, lock.New(p), store)

	res := manager.Execute(ctx, operations.Request{
		Type:        types.OperationConfig,
		Command:     "config",
		Args:        []string{"set", opts.Key, opts.Value},
		Description: "set " + opts.Key,
	}, func(ctx context.Context, op *types.Operation) (any, error) {
		return nil, cfg.Set(p, opts.Key, opts.Value)
	})
	if res.Err != nil {
		return nil, res.Err
	}
	return &SetResult{OperationID: res.Operation.ID}, nil
}
