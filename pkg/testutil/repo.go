// pkg/testutil/repo.go
// DEPENDENCIES: go-git (memory storage), go-billy (memfs)
// PURPOSE: Build real in-memory git repositories for tests

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/histofy/histofy/pkg/git"
)

// TestUser is the identity stamped on commits created by TestRepo.
var TestUser = git.Signature{Name: "Test User", Email: "test@example.com"}

// TestRepo is an in-memory git repository plus the handles tests need:
// the billy filesystem for writing files, the raw go-git repository for
// low-level assertions, and the Repository backend under test.
type TestRepo struct {
	FS   billy.Filesystem
	Repo *gogit.Repository
	Git  *git.Repository

	t *testing.T
}

// NewTestRepo initializes an empty in-memory repository. The default
// branch is master, matching go-git's Init.
func NewTestRepo(t *testing.T) *TestRepo {
	t.Helper()

	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := gogit.Init(storer, fs)
	if err != nil {
		t.Fatalf("Failed to init in-memory repo: %v", err)
	}

	return &TestRepo{
		FS:   fs,
		Repo: repo,
		Git:  git.NewFromRepository(repo, "/"),
		t:    t,
	}
}

// WriteFile writes content to path in the working tree.
func (r *TestRepo) WriteFile(path, content string) {
	r.t.Helper()
	if err := util.WriteFile(r.FS, path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// Commit stages everything and commits with both dates set to when.
func (r *TestRepo) Commit(message string, when time.Time) string {
	r.t.Helper()

	w, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		r.t.Fatalf("Failed to stage files: %v", err)
	}

	sig := object.Signature{Name: TestUser.Name, Email: TestUser.Email, When: when}
	hash, err := w.Commit(message, &gogit.CommitOptions{
		Author:    &sig,
		Committer: &sig,
	})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash.String()
}

// CommitFile writes one file and commits it.
func (r *TestRepo) CommitFile(path, content, message string, when time.Time) string {
	r.t.Helper()
	r.WriteFile(path, content)
	return r.Commit(message, when)
}

// Seed creates n commits on distinct files, one hour apart starting at
// base. Returns the hashes oldest first.
func (r *TestRepo) Seed(n int, base time.Time) []string {
	r.t.Helper()

	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("file%d.txt", i)
		msg := fmt.Sprintf("commit %d", i)
		hashes = append(hashes, r.CommitFile(path, fmt.Sprintf("content %d\n", i), msg, base.Add(time.Duration(i)*time.Hour)))
	}
	return hashes
}

// Head returns the current HEAD hash.
func (r *TestRepo) Head() string {
	r.t.Helper()
	ref, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("Failed to read HEAD: %v", err)
	}
	return ref.Hash().String()
}

// CommitDate returns the committer timestamp of a commit.
func (r *TestRepo) CommitDate(hash string) time.Time {
	r.t.Helper()
	c, err := r.Git.ResolveRange(context.Background(), hash)
	if err != nil {
		r.t.Fatalf("Failed to resolve %s: %v", hash, err)
	}
	return c[0].Committer.When
}
