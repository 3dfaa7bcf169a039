// Package workspace mirrors a conversation's FileMap onto disk, follows
// local edits back into it and checkpoints each generation with git.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
)

// ErrUnsafePath is returned for paths that would leave the mirror root
var ErrUnsafePath = errors.New("path escapes workspace")

// SyncResult lists what a Sync touched, as workspace-relative paths
type SyncResult struct {
	Written []string
	Removed []string
	Skipped []string // FileMap paths refused by the mirror
}

// Mirror keeps a directory in step with a FileMap. It only ever removes
// files it wrote itself.
type Mirror struct {
	fs billy.Filesystem

	mu      sync.Mutex
	written map[string]string // rel path -> content last written or read back
}

// OpenMirror creates dir if needed and mirrors into it
func OpenMirror(dir string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}
	return NewMirror(osfs.New(dir, osfs.WithBoundOS())), nil
}

// NewMirror mirrors into an existing filesystem
func NewMirror(fs billy.Filesystem) *Mirror {
	return &Mirror{fs: fs, written: make(map[string]string)}
}

// Root is the directory being mirrored into
func (m *Mirror) Root() string {
	return m.fs.Root()
}

// Filesystem exposes the mirror's filesystem, e.g. for a git worktree
func (m *Mirror) Filesystem() billy.Filesystem {
	return m.fs
}

// Sync writes every file of fm whose content differs from what was last
// written, then removes previously written files fm no longer has. Files
// whose path is unsafe are skipped and reported in Skipped.
func (m *Mirror) Sync(fm filemap.FileMap) (SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res SyncResult
	keep := make(map[string]bool, len(fm))

	for _, p := range fm.Paths() {
		rel, err := relPath(p)
		if err != nil {
			logger.Warnf("⚠️  Not mirroring %s: %v", p, err)
			res.Skipped = append(res.Skipped, p)
			continue
		}
		keep[rel] = true

		code := fm[p].Code
		if prev, ok := m.written[rel]; ok && prev == code && m.exists(rel) {
			continue
		}
		// Recorded first so the watcher sees the write as an echo
		m.written[rel] = code
		if err := util.WriteFile(m.fs, rel, []byte(code), 0o644); err != nil {
			delete(m.written, rel)
			return res, fmt.Errorf("failed to write %s: %w", rel, err)
		}
		res.Written = append(res.Written, rel)
	}

	for rel := range m.written {
		if keep[rel] {
			continue
		}
		delete(m.written, rel)
		if err := m.fs.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("failed to remove %s: %w", rel, err)
		}
		res.Removed = append(res.Removed, rel)
	}
	return res, nil
}

// Echo reports whether content is what the mirror itself last put at rel
func (m *Mirror) Echo(rel, content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.written[rel]
	return ok && prev == content
}

// Adopt records content read back from disk so the next Sync leaves it alone
func (m *Mirror) Adopt(rel, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[rel] = content
}

// Read returns the current on-disk content of rel
func (m *Mirror) Read(rel string) (string, error) {
	if _, err := relPath(rel); err != nil {
		return "", err
	}
	data, err := util.ReadFile(m.fs, rel)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *Mirror) exists(rel string) bool {
	_, err := m.fs.Stat(rel)
	return err == nil
}

// relPath turns a FileMap path into a mirror-relative one. Paths that climb
// out of the root or reach into .git are refused.
func relPath(p string) (string, error) {
	raw := strings.ReplaceAll(p, "\\", "/")
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", ErrUnsafePath
		}
	}
	norm := filemap.NormalizePath(raw)
	rel := strings.TrimPrefix(norm, "/")
	if rel == "" || rel == "." {
		return "", ErrUnsafePath
	}
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return "", ErrUnsafePath
	}
	return rel, nil
}
