package git

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

var signature = object.Signature{Name: "sitecraft", Email: "sitecraft@localhost"}

// Checkpoint is one commit in a workspace's history
type Checkpoint struct {
	Hash    string
	Message string
	When    time.Time
}

// GoGitService commits a workspace through go-git. The repository lives in
// .git inside the worktree filesystem and is created on first use.
type GoGitService struct {
	worktree billy.Filesystem
	repo     *gogit.Repository
}

// OpenDir opens or initializes the repository at dir
func OpenDir(dir string) (*GoGitService, error) {
	return Open(osfs.New(dir, osfs.WithBoundOS()))
}

// Open opens or initializes a repository on fs
func Open(fs billy.Filesystem) (*GoGitService, error) {
	dot, err := fs.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, fmt.Errorf("failed to open .git: %w", err)
	}
	storage := filesystem.NewStorage(dot, cache.NewObjectLRUDefault())

	repo, err := gogit.Open(storage, fs)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.Init(storage, fs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return &GoGitService{worktree: fs, repo: repo}, nil
}

// Filesystem is the worktree the repository tracks
func (s *GoGitService) Filesystem() billy.Filesystem {
	return s.worktree
}

// AddCommitGetHash stages every change and commits it. An unchanged worktree
// produces no commit and an empty hash.
func (s *GoGitService) AddCommitGetHash(title string) (string, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	sig := signature
	sig.When = time.Now()
	hash, err := wt.Commit(title, &gogit.CommitOptions{Author: &sig, Committer: &sig})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return hash.String(), nil
}

// Log lists up to limit checkpoints, newest first. limit <= 0 means all.
func (s *GoGitService) Log(limit int) ([]Checkpoint, error) {
	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}

	iter, err := s.repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var out []Checkpoint
	errStop := errors.New("stop")
	err = iter.ForEach(func(c *object.Commit) error {
		out = append(out, Checkpoint{Hash: c.Hash.String(), Message: c.Message, When: c.Author.When})
		if limit > 0 && len(out) >= limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return out, nil
}
