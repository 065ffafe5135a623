package git

import (
	"context"
	"strconv"
	"strings"

	"github.com/histofy/histofy/pkg/errors"
)

// ResolveRange expands a range expression to commits, oldest first.
//
// Three forms are accepted:
//
//	<a>..<b>   commits reachable from b following first parents,
//	           stopping at a (a itself excluded)
//	<rev>      exactly that commit
//	<n>        the last n commits from HEAD
func (r *Repository) ResolveRange(ctx context.Context, rangeExpr string) ([]Commit, error) {
	expr := strings.TrimSpace(rangeExpr)
	if expr == "" {
		return nil, errors.NewValidationError("range", "empty commit range")
	}
	if strings.Contains(expr, "...") {
		return nil, errors.NewValidationError("range", "symmetric ranges (a...b) are not supported, use a..b")
	}

	if strings.Contains(expr, "..") {
		parts := strings.SplitN(expr, "..", 2)
		from, to := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if from == "" || to == "" {
			return nil, errors.NewValidationError("range", "both ends of %q must name a revision", expr)
		}
		return r.resolveBounded(ctx, from, to)
	}

	if n, err := strconv.Atoi(expr); err == nil {
		if n < 1 {
			return nil, errors.NewValidationError("range", "commit count must be at least 1, got %d", n)
		}
		commits, err := r.Log(ctx, LogOptions{MaxCount: n})
		if err != nil {
			return nil, err
		}
		reverse(commits)
		return commits, nil
	}

	commit, err := r.resolveCommit(expr)
	if err != nil {
		return nil, err
	}
	return []Commit{commitFromObject(commit)}, nil
}

// resolveBounded walks first parents from `to` down to `from`, exclusive.
func (r *Repository) resolveBounded(ctx context.Context, from, to string) ([]Commit, error) {
	lower, err := r.resolveCommit(from)
	if err != nil {
		return nil, err
	}
	upper, err := r.resolveCommit(to)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	cur := upper
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cur.Hash == lower.Hash {
			reverse(commits)
			return commits, nil
		}
		commits = append(commits, commitFromObject(cur))
		if cur.NumParents() == 0 {
			return nil, errors.NewValidationError("range",
				"%s is not an ancestor of %s", from, to)
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, errors.NewGitError("rev-list", "", err)
		}
		cur = parent
	}
}

func reverse(commits []Commit) {
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
}
