package git

import (
	"fmt"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// NewTestService creates a repository on an in-memory filesystem
func NewTestService() (*GoGitService, error) {
	svc, err := Open(memfs.New())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize test repository: %w", err)
	}
	return svc, nil
}

// WriteTestFile writes content into the service's worktree
func WriteTestFile(svc *GoGitService, path, content string) error {
	return util.WriteFile(svc.Filesystem(), path, []byte(content), 0o644)
}
