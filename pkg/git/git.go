// Package git defines the repository primitives the rest of histofy is
// built on, plus a pure-Go implementation backed by go-git.
//
// Everything above this package (planner, migration executor, operation
// manager, undo) consumes the Git interface. That keeps rewrites testable:
// tests inject in-memory repositories or scripted fakes and the engine
// cannot tell the difference.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRebaseAborted is returned by RebaseWithDates when a conflict handler
// answers ResolutionAbort. The branch ref and working tree are left where
// they were.
var ErrRebaseAborted = errors.New("rebase aborted on conflict")

// Signature identifies an author or committer at a point in time.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String renders the signature in the conventional "Name <email>" form.
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// ParseSignature parses "Name <email>" into a Signature. The timestamp is
// left zero; callers fill it in.
func ParseSignature(s string) (Signature, error) {
	open := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")
	if open < 0 || end < open {
		return Signature{}, fmt.Errorf("invalid signature %q, expected \"Name <email>\"", s)
	}
	name := strings.TrimSpace(s[:open])
	email := strings.TrimSpace(s[open+1 : end])
	if name == "" || email == "" {
		return Signature{}, fmt.Errorf("invalid signature %q, expected \"Name <email>\"", s)
	}
	return Signature{Name: name, Email: email}, nil
}

// Commit is the engine's view of one commit.
type Commit struct {
	Hash      string
	Parents   []string
	Tree      string
	Author    Signature
	Committer Signature
	Message   string
}

// ShortHash returns the abbreviated hash used in messages and previews.
func (c Commit) ShortHash() string {
	if len(c.Hash) < 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// Summary returns the first line of the commit message.
func (c Commit) Summary() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return c.Message[:i]
	}
	return c.Message
}

// Status describes the working tree at a point in time.
type Status struct {
	Branch    string
	Head      string
	Detached  bool
	Staged    []string
	Unstaged  []string
	Untracked []string
}

// Clean reports whether the working tree has no local modifications.
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// LogOptions bounds a history listing.
type LogOptions struct {
	// From is the rev to start from; empty means HEAD.
	From string
	// MaxCount limits the number of commits returned; 0 means no limit.
	MaxCount int
}

// CommitInput describes a commit to create with an explicit timestamp.
type CommitInput struct {
	Message string
	When    time.Time
	// Author overrides the repository's configured author when non-nil.
	Author *Signature
	// AddAll stages every modification before committing.
	AddAll bool
	// Files stages the given paths before committing.
	Files []string
	// AllowEmpty permits a commit with no staged changes.
	AllowEmpty bool
}

// DateUpdate assigns a new timestamp to one existing commit.
type DateUpdate struct {
	Hash string
	When time.Time
}

// Conflict reports a commit that could not be reapplied cleanly during a
// rewrite.
type Conflict struct {
	Commit  string
	Files   []string
	Message string
}

// Resolution is a conflict handler's decision.
type Resolution int

const (
	// ResolutionAbort stops the rewrite; the executor restores state.
	ResolutionAbort Resolution = iota
	// ResolutionTheirs takes the incoming commit's side and continues.
	ResolutionTheirs
	// ResolutionOurs keeps the current side and continues.
	ResolutionOurs
)

// RebaseOptions carries the executor's hooks into a date rewrite.
type RebaseOptions struct {
	// OnRewrite is invoked after each commit is rewritten.
	OnRewrite func(index int, oldHash, newHash string)
	// OnConflict is consulted when a commit cannot be reapplied. A nil
	// handler aborts. The go-git backend rewrites objects directly and
	// never conflicts; scripted test doubles exercise this path.
	OnConflict func(c Conflict) Resolution
}

// RebaseResult reports what a completed rewrite produced.
type RebaseResult struct {
	// NewHead is the rewritten branch tip.
	NewHead string
	// Rewritten maps original hashes to their replacements, including
	// descendants above the dated range.
	Rewritten map[string]string
	// Conflicts counts conflicts that were encountered and resolved.
	Conflicts int
}

// PushOptions describes a push to a remote.
type PushOptions struct {
	Remote string
	// RefSpec pushes a specific ref; empty pushes the current branch.
	RefSpec string
	Force   bool
}

// Git is the set of repository primitives the engine depends on.
//
// Implementations must be safe for sequential use from a single goroutine;
// the operation manager serializes mutating operations at a higher level.
type Git interface {
	// Root returns the absolute path of the repository worktree.
	Root() string

	// Head returns the commit HEAD points at.
	Head(ctx context.Context) (*Commit, error)

	// CurrentBranch returns the short branch name, or an error when HEAD
	// is detached.
	CurrentBranch(ctx context.Context) (string, error)

	// Status reports the working tree state.
	Status(ctx context.Context) (*Status, error)

	// Log lists commits newest-first following first parents.
	Log(ctx context.Context, opts LogOptions) ([]Commit, error)

	// ResolveRange expands a range expression into commits, oldest first.
	// Supported forms: "<a>..<b>" (commits after a up to b), a bare rev
	// (that commit only), and a bare integer N (last N commits from HEAD).
	ResolveRange(ctx context.Context, rangeExpr string) ([]Commit, error)

	// CommitWithDate creates a commit whose author and committer dates are
	// both set to input.When.
	CommitWithDate(ctx context.Context, input CommitInput) (*Commit, error)

	// CreateBranch points a new branch at rev without checking it out.
	CreateBranch(ctx context.Context, name, rev string) error

	// DeleteBranch removes a branch ref. Deleting the checked-out branch
	// is an error.
	DeleteBranch(ctx context.Context, name string) error

	// BranchExists reports whether a local branch ref exists.
	BranchExists(ctx context.Context, name string) (bool, error)

	// RebaseWithDates rewrites the dated commits and every descendant up
	// to the current branch tip, preserving trees, messages, authorship
	// and relative order. The branch ref and working tree end at the
	// rewritten head.
	RebaseWithDates(ctx context.Context, updates []DateUpdate, opts RebaseOptions) (*RebaseResult, error)

	// ResetHard moves HEAD, index and working tree to rev.
	ResetHard(ctx context.Context, rev string) error

	// ResetMixed moves HEAD and index to rev, leaving the working tree.
	ResetMixed(ctx context.Context, rev string) error

	// DiffTrees returns the paths that differ between two commits' trees.
	// An empty result means the trees are identical.
	DiffTrees(ctx context.Context, revA, revB string) ([]string, error)

	// Push updates a remote. Transient transport failures come back as
	// retryable network errors.
	Push(ctx context.Context, opts PushOptions) error
}
