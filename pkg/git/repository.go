package git

import (
	"context"
	stderrors "errors"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/logging"
)

// Repository implements Git on top of go-git. No git binary is involved;
// rewrites are performed directly on the object database.
type Repository struct {
	repo *gogit.Repository
	root string
}

var _ Git = (*Repository)(nil)

// Open opens the repository containing path, searching parent directories
// the way the git CLI does.
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.NewGitError("open", "", err)
	}
	return &Repository{repo: repo, root: path}, nil
}

// NewFromRepository wraps an already-open go-git repository. Tests use this
// with in-memory storage.
func NewFromRepository(repo *gogit.Repository, root string) *Repository {
	return &Repository{repo: repo, root: root}
}

// Root returns the absolute path of the repository worktree.
func (r *Repository) Root() string {
	return r.root
}

// Head returns the commit HEAD points at.
func (r *Repository) Head(ctx context.Context) (*Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, errors.NewGitError("rev-parse", "", err)
	}
	return r.lookupCommit(ref.Hash())
}

// CurrentBranch returns the short branch name HEAD is on.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", errors.NewGitError("rev-parse", "", err)
	}
	if ref.Name() == plumbing.HEAD || !ref.Name().IsBranch() {
		return "", errors.New(errors.ErrGit, "HEAD is detached").
			WithDetail("subcommand", "rev-parse")
	}
	return ref.Name().Short(), nil
}

// Status reports the working tree state.
func (r *Repository) Status(ctx context.Context) (*Status, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.NewGitError("status", "", err)
	}
	wtStatus, err := w.Status()
	if err != nil {
		return nil, errors.NewGitError("status", "", err)
	}

	st := &Status{}
	for path, fs := range wtStatus {
		if fs.Staging == gogit.Untracked && fs.Worktree == gogit.Untracked {
			st.Untracked = append(st.Untracked, path)
			continue
		}
		if fs.Staging != gogit.Unmodified {
			st.Staged = append(st.Staged, path)
		}
		if fs.Worktree != gogit.Unmodified {
			st.Unstaged = append(st.Unstaged, path)
		}
	}
	sort.Strings(st.Staged)
	sort.Strings(st.Unstaged)
	sort.Strings(st.Untracked)

	ref, err := r.repo.Head()
	if err != nil {
		// A repository with no commits yet still has a status.
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return st, nil
		}
		return nil, errors.NewGitError("status", "", err)
	}
	st.Head = ref.Hash().String()
	if ref.Name() == plumbing.HEAD || !ref.Name().IsBranch() {
		st.Detached = true
	} else {
		st.Branch = ref.Name().Short()
	}
	return st, nil
}

// Log lists commits newest-first following first parents.
func (r *Repository) Log(ctx context.Context, opts LogOptions) ([]Commit, error) {
	from := opts.From
	if from == "" {
		from = "HEAD"
	}
	start, err := r.resolveCommit(from)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	cur := start
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		commits = append(commits, commitFromObject(cur))
		if opts.MaxCount > 0 && len(commits) >= opts.MaxCount {
			break
		}
		if cur.NumParents() == 0 {
			break
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, errors.NewGitError("log", "", err)
		}
		cur = parent
	}
	return commits, nil
}

// CommitWithDate creates a commit with both dates set to input.When.
func (r *Repository) CommitWithDate(ctx context.Context, input CommitInput) (*Commit, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.NewGitError("commit", "", err)
	}

	if input.AddAll {
		if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return nil, errors.NewGitError("add", "", err)
		}
	}
	for _, f := range input.Files {
		if _, err := w.Add(f); err != nil {
			return nil, errors.NewGitError("add", f, err)
		}
	}

	sig, err := r.commitSignature(input)
	if err != nil {
		return nil, err
	}
	author := object.Signature{Name: sig.Name, Email: sig.Email, When: input.When}

	hash, err := w.Commit(input.Message, &gogit.CommitOptions{
		Author:            &author,
		Committer:         &author,
		AllowEmptyCommits: input.AllowEmpty,
	})
	if err != nil {
		return nil, errors.NewGitError("commit", "", err)
	}

	logger := logging.GetLogger("git")
	logger.Debug().
		Str("hash", hash.String()).
		Time("when", input.When).
		Msg("Created commit")

	return r.lookupCommit(hash)
}

// commitSignature decides who the commit is attributed to: the explicit
// author when given, otherwise the repository configuration.
func (r *Repository) commitSignature(input CommitInput) (Signature, error) {
	if input.Author != nil {
		return *input.Author, nil
	}
	cfg, err := r.repo.ConfigScoped(gitconfig.SystemScope)
	if err != nil {
		return Signature{}, errors.NewGitError("config", "", err)
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return Signature{}, errors.New(errors.ErrGit, "author identity unknown, set user.name and user.email").
			WithDetail("subcommand", "commit")
	}
	return Signature{Name: cfg.User.Name, Email: cfg.User.Email}, nil
}

// CreateBranch points a new branch at rev without checking it out.
func (r *Repository) CreateBranch(ctx context.Context, name, rev string) error {
	target, err := r.resolveCommit(rev)
	if err != nil {
		return err
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err == nil {
		return errors.Newf(errors.ErrGit, "branch %s already exists", name).
			WithDetail("subcommand", "branch")
	}
	ref := plumbing.NewHashReference(refName, target.Hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return errors.NewGitError("branch", "", err)
	}
	return nil
}

// DeleteBranch removes a branch ref.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	refName := plumbing.NewBranchReferenceName(name)
	head, err := r.repo.Head()
	if err == nil && head.Name() == refName {
		return errors.Newf(errors.ErrGit, "cannot delete the checked-out branch %s", name).
			WithDetail("subcommand", "branch")
	}
	if _, err := r.repo.Reference(refName, false); err != nil {
		return errors.NewGitError("branch", "", err)
	}
	if err := r.repo.Storer.RemoveReference(refName); err != nil {
		return errors.NewGitError("branch", "", err)
	}
	return nil
}

// BranchExists reports whether a local branch ref exists.
func (r *Repository) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, errors.NewGitError("branch", "", err)
}

// RebaseWithDates rewrites the dated commits and their descendants by
// building replacement commit objects: same tree, message and authorship,
// new parent chain and new timestamps. Trees are untouched, so the rewrite
// cannot conflict; the branch ref and working tree end at the new head.
func (r *Repository) RebaseWithDates(ctx context.Context, updates []DateUpdate, opts RebaseOptions) (*RebaseResult, error) {
	if len(updates) == 0 {
		return nil, errors.NewValidationError("updates", "no commits to rewrite")
	}

	headRef, err := r.repo.Head()
	if err != nil {
		return nil, errors.NewGitError("rebase", "", err)
	}
	if headRef.Name() == plumbing.HEAD || !headRef.Name().IsBranch() {
		return nil, errors.New(errors.ErrGit, "cannot rewrite history with a detached HEAD").
			WithDetail("subcommand", "rebase")
	}
	headCommit, err := r.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, errors.NewGitError("rebase", "", err)
	}

	byHash := make(map[string]DateUpdate, len(updates))
	for _, u := range updates {
		byHash[u.Hash] = u
	}

	// Walk the first-parent chain from HEAD until every dated commit has
	// been seen. The deepest dated commit bounds the rewrite.
	var chain []*object.Commit
	remaining := len(updates)
	cur := headCommit
	for {
		chain = append(chain, cur)
		if _, ok := byHash[cur.Hash.String()]; ok {
			remaining--
			if remaining == 0 {
				break
			}
		}
		if cur.NumParents() == 0 {
			if remaining > 0 {
				return nil, errors.Newf(errors.ErrGit,
					"%d commit(s) to rewrite are not on the current branch", remaining).
					WithDetail("subcommand", "rebase")
			}
			break
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, errors.NewGitError("rebase", "", err)
		}
		cur = parent
	}

	// New parent for the oldest rewritten commit: its own original parent.
	oldest := chain[len(chain)-1]
	newParent := plumbing.ZeroHash
	if oldest.NumParents() > 0 {
		parent, err := oldest.Parent(0)
		if err != nil {
			return nil, errors.NewGitError("rebase", "", err)
		}
		newParent = parent.Hash
	}

	logger := logging.GetLogger("git")
	logger.Debug().
		Int("dated", len(updates)).
		Int("total", len(chain)).
		Msg("Rewriting commit chain")

	// Replay oldest to newest.
	rewritten := make(map[string]string, len(chain))
	index := 0
	for i := len(chain) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		orig := chain[i]

		author := orig.Author
		committer := orig.Committer
		if u, ok := byHash[orig.Hash.String()]; ok {
			author.When = u.When
			committer.When = u.When
		}

		parents := make([]plumbing.Hash, len(orig.ParentHashes))
		copy(parents, orig.ParentHashes)
		if len(parents) > 0 {
			parents[0] = newParent
		}

		replacement := &object.Commit{
			Author:       author,
			Committer:    committer,
			Message:      orig.Message,
			TreeHash:     orig.TreeHash,
			ParentHashes: parents,
		}
		obj := r.repo.Storer.NewEncodedObject()
		if err := replacement.Encode(obj); err != nil {
			return nil, errors.NewGitError("rebase", orig.Hash.String(), err)
		}
		newHash, err := r.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return nil, errors.NewGitError("rebase", orig.Hash.String(), err)
		}

		rewritten[orig.Hash.String()] = newHash.String()
		if opts.OnRewrite != nil {
			opts.OnRewrite(index, orig.Hash.String(), newHash.String())
		}
		newParent = newHash
		index++
	}

	newHead := newParent
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(headRef.Name(), newHead)); err != nil {
		return nil, errors.NewGitError("rebase", "", err)
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.NewGitError("rebase", "", err)
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: newHead, Mode: gogit.HardReset}); err != nil {
		return nil, errors.NewGitError("rebase", "", err)
	}

	return &RebaseResult{
		NewHead:   newHead.String(),
		Rewritten: rewritten,
	}, nil
}

// ResetHard moves HEAD, index and working tree to rev.
func (r *Repository) ResetHard(ctx context.Context, rev string) error {
	return r.reset(rev, gogit.HardReset)
}

// ResetMixed moves HEAD and index to rev, leaving the working tree.
func (r *Repository) ResetMixed(ctx context.Context, rev string) error {
	return r.reset(rev, gogit.MixedReset)
}

func (r *Repository) reset(rev string, mode gogit.ResetMode) error {
	target, err := r.resolveCommit(rev)
	if err != nil {
		return err
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return errors.NewGitError("reset", "", err)
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: target.Hash, Mode: mode}); err != nil {
		return errors.NewGitError("reset", rev, err)
	}
	return nil
}

// DiffTrees returns the paths that differ between two commits' trees.
func (r *Repository) DiffTrees(ctx context.Context, revA, revB string) ([]string, error) {
	a, err := r.resolveCommit(revA)
	if err != nil {
		return nil, err
	}
	b, err := r.resolveCommit(revB)
	if err != nil {
		return nil, err
	}

	// Identical trees need no walk.
	if a.TreeHash == b.TreeHash {
		return nil, nil
	}

	treeA, err := a.Tree()
	if err != nil {
		return nil, errors.NewGitError("diff-tree", "", err)
	}
	treeB, err := b.Tree()
	if err != nil {
		return nil, errors.NewGitError("diff-tree", "", err)
	}
	changes, err := object.DiffTree(treeA, treeB)
	if err != nil {
		return nil, errors.NewGitError("diff-tree", "", err)
	}

	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths, nil
}

// Push updates a remote, classifying failures for the retry loop.
func (r *Repository) Push(ctx context.Context, opts PushOptions) error {
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}

	pushOpts := &gogit.PushOptions{
		RemoteName: remote,
		Force:      opts.Force,
	}
	if opts.RefSpec != "" {
		pushOpts.RefSpecs = []gitconfig.RefSpec{gitconfig.RefSpec(opts.RefSpec)}
	}

	err := r.repo.PushContext(ctx, pushOpts)
	if err == nil || stderrors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Failed auth or a missing repository will not heal with a retry.
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		stderrors.Is(err, transport.ErrRepositoryNotFound):
		return errors.NewNetworkError("push", false, err)
	}
	return errors.NewNetworkError("push", true, err)
}

// resolveCommit resolves any rev (hash, branch, HEAD~n) to its commit.
func (r *Repository) resolveCommit(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.NewGitError("rev-parse", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.NewGitError("rev-parse", rev, err)
	}
	return commit, nil
}

func (r *Repository) lookupCommit(hash plumbing.Hash) (*Commit, error) {
	obj, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, errors.NewGitError("cat-file", hash.String(), err)
	}
	c := commitFromObject(obj)
	return &c, nil
}

func commitFromObject(c *object.Commit) Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return Commit{
		Hash:    c.Hash.String(),
		Parents: parents,
		Tree:    c.TreeHash.String(),
		Author: Signature{
			Name:  c.Author.Name,
			Email: c.Author.Email,
			When:  c.Author.When,
		},
		Committer: Signature{
			Name:  c.Committer.Name,
			Email: c.Committer.Email,
			When:  c.Committer.When,
		},
		Message: c.Message,
	}
}
