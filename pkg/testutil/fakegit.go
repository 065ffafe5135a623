// pkg/testutil/fakegit.go
// DEPENDENCIES: pkg/git
// PURPOSE: Scriptable Git implementation for failure-path tests

package testutil

import (
	"context"
	"sync"

	"github.com/histofy/histofy/pkg/git"
)

// FakeGit implements git.Git for tests. Every method delegates to Real
// unless its Func field is set, so a test overrides only the calls it
// wants to script. Method names are recorded in order for assertions on
// rollback and cleanup sequences.
type FakeGit struct {
	Real git.Git

	RootFunc            func() string
	HeadFunc            func(ctx context.Context) (*git.Commit, error)
	CurrentBranchFunc   func(ctx context.Context) (string, error)
	StatusFunc          func(ctx context.Context) (*git.Status, error)
	LogFunc             func(ctx context.Context, opts git.LogOptions) ([]git.Commit, error)
	ResolveRangeFunc    func(ctx context.Context, rangeExpr string) ([]git.Commit, error)
	CommitWithDateFunc  func(ctx context.Context, input git.CommitInput) (*git.Commit, error)
	CreateBranchFunc    func(ctx context.Context, name, rev string) error
	DeleteBranchFunc    func(ctx context.Context, name string) error
	BranchExistsFunc    func(ctx context.Context, name string) (bool, error)
	RebaseWithDatesFunc func(ctx context.Context, updates []git.DateUpdate, opts git.RebaseOptions) (*git.RebaseResult, error)
	ResetHardFunc       func(ctx context.Context, rev string) error
	ResetMixedFunc      func(ctx context.Context, rev string) error
	DiffTreesFunc       func(ctx context.Context, revA, revB string) ([]string, error)
	PushFunc            func(ctx context.Context, opts git.PushOptions) error

	mu    sync.Mutex
	calls []string
}

var _ git.Git = (*FakeGit)(nil)

// NewFakeGit wraps a real backend, usually one from NewTestRepo.
func NewFakeGit(real git.Git) *FakeGit {
	return &FakeGit{Real: real}
}

// Calls returns the method names invoked so far, in order.
func (f *FakeGit) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times a method was invoked.
func (f *FakeGit) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeGit) record(method string) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
}

// Root returns the repository root.
func (f *FakeGit) Root() string {
	f.record("Root")
	if f.RootFunc != nil {
		return f.RootFunc()
	}
	return f.Real.Root()
}

// Head returns the HEAD commit.
func (f *FakeGit) Head(ctx context.Context) (*git.Commit, error) {
	f.record("Head")
	if f.HeadFunc != nil {
		return f.HeadFunc(ctx)
	}
	return f.Real.Head(ctx)
}

// CurrentBranch returns the checked-out branch name.
func (f *FakeGit) CurrentBranch(ctx context.Context) (string, error) {
	f.record("CurrentBranch")
	if f.CurrentBranchFunc != nil {
		return f.CurrentBranchFunc(ctx)
	}
	return f.Real.CurrentBranch(ctx)
}

// Status reports the working tree state.
func (f *FakeGit) Status(ctx context.Context) (*git.Status, error) {
	f.record("Status")
	if f.StatusFunc != nil {
		return f.StatusFunc(ctx)
	}
	return f.Real.Status(ctx)
}

// Log lists commits.
func (f *FakeGit) Log(ctx context.Context, opts git.LogOptions) ([]git.Commit, error) {
	f.record("Log")
	if f.LogFunc != nil {
		return f.LogFunc(ctx, opts)
	}
	return f.Real.Log(ctx, opts)
}

// ResolveRange expands a range expression.
func (f *FakeGit) ResolveRange(ctx context.Context, rangeExpr string) ([]git.Commit, error) {
	f.record("ResolveRange")
	if f.ResolveRangeFunc != nil {
		return f.ResolveRangeFunc(ctx, rangeExpr)
	}
	return f.Real.ResolveRange(ctx, rangeExpr)
}

// CommitWithDate creates a commit.
func (f *FakeGit) CommitWithDate(ctx context.Context, input git.CommitInput) (*git.Commit, error) {
	f.record("CommitWithDate")
	if f.CommitWithDateFunc != nil {
		return f.CommitWithDateFunc(ctx, input)
	}
	return f.Real.CommitWithDate(ctx, input)
}

// CreateBranch creates a branch at rev.
func (f *FakeGit) CreateBranch(ctx context.Context, name, rev string) error {
	f.record("CreateBranch")
	if f.CreateBranchFunc != nil {
		return f.CreateBranchFunc(ctx, name, rev)
	}
	return f.Real.CreateBranch(ctx, name, rev)
}

// DeleteBranch removes a branch.
func (f *FakeGit) DeleteBranch(ctx context.Context, name string) error {
	f.record("DeleteBranch")
	if f.DeleteBranchFunc != nil {
		return f.DeleteBranchFunc(ctx, name)
	}
	return f.Real.DeleteBranch(ctx, name)
}

// BranchExists reports whether a branch exists.
func (f *FakeGit) BranchExists(ctx context.Context, name string) (bool, error) {
	f.record("BranchExists")
	if f.BranchExistsFunc != nil {
		return f.BranchExistsFunc(ctx, name)
	}
	return f.Real.BranchExists(ctx, name)
}

// RebaseWithDates rewrites commit dates.
func (f *FakeGit) RebaseWithDates(ctx context.Context, updates []git.DateUpdate, opts git.RebaseOptions) (*git.RebaseResult, error) {
	f.record("RebaseWithDates")
	if f.RebaseWithDatesFunc != nil {
		return f.RebaseWithDatesFunc(ctx, updates, opts)
	}
	return f.Real.RebaseWithDates(ctx, updates, opts)
}

// ResetHard resets HEAD, index and working tree.
func (f *FakeGit) ResetHard(ctx context.Context, rev string) error {
	f.record("ResetHard")
	if f.ResetHardFunc != nil {
		return f.ResetHardFunc(ctx, rev)
	}
	return f.Real.ResetHard(ctx, rev)
}

// ResetMixed resets HEAD and index.
func (f *FakeGit) ResetMixed(ctx context.Context, rev string) error {
	f.record("ResetMixed")
	if f.ResetMixedFunc != nil {
		return f.ResetMixedFunc(ctx, rev)
	}
	return f.Real.ResetMixed(ctx, rev)
}

// DiffTrees lists paths differing between two commits.
func (f *FakeGit) DiffTrees(ctx context.Context, revA, revB string) ([]string, error) {
	f.record("DiffTrees")
	if f.DiffTreesFunc != nil {
		return f.DiffTreesFunc(ctx, revA, revB)
	}
	return f.Real.DiffTrees(ctx, revA, revB)
}

// Push updates a remote.
func (f *FakeGit) Push(ctx context.Context, opts git.PushOptions) error {
	f.record("Push")
	if f.PushFunc != nil {
		return f.PushFunc(ctx, opts)
	}
	return f.Real.Push(ctx, opts)
}
