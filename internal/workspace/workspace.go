package workspace

import (
	"fmt"
	"sync"

	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/git"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

// Options selects the optional parts of a workspace
type Options struct {
	Watch       bool // merge local edits back into the FileMap
	Checkpoints bool // commit after each generation
}

// Workspace ties a FileMap to a directory on disk
type Workspace struct {
	files  *filemap.Store
	mirror *Mirror

	watcher     *Watcher
	repo        *git.GoGitService
	checkpoints *git.SessionCheckpointManager

	syncMu      sync.Mutex
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// Open mirrors files into dir and keeps it current as files change
func Open(dir string, files *filemap.Store, opts Options) (*Workspace, error) {
	mirror, err := OpenMirror(dir)
	if err != nil {
		return nil, err
	}

	w := &Workspace{files: files, mirror: mirror, done: make(chan struct{})}

	if opts.Checkpoints {
		repo, err := git.Open(mirror.Filesystem())
		if err != nil {
			return nil, err
		}
		w.repo = repo
		w.checkpoints = git.NewSessionCheckpointManager(repo, nil)
	}

	if err := w.Sync(); err != nil {
		return nil, err
	}

	if opts.Watch {
		watcher, err := NewWatcher(mirror, files)
		if err != nil {
			return nil, err
		}
		w.watcher = watcher
	}

	changes, unsubscribe := files.Subscribe()
	w.unsubscribe = unsubscribe
	recovery.SafeGoWithCleanup("workspace-sync", func() {
		for range changes {
			if err := w.Sync(); err != nil {
				logger.Warnf("⚠️  Workspace sync failed: %v", err)
			}
		}
	}, func() { close(w.done) })

	logger.Debugf("📁 Workspace mirrored at %s", dir)
	return w, nil
}

// Dir is the directory being mirrored into
func (w *Workspace) Dir() string {
	return w.mirror.Root()
}

// Sync writes the effective FileMap to disk now
func (w *Workspace) Sync() error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	res, err := w.mirror.Sync(w.files.Effective())
	if err != nil {
		return err
	}
	if len(res.Written)+len(res.Removed) > 0 {
		logger.Debugf("📁 Workspace sync: %d written, %d removed", len(res.Written), len(res.Removed))
	}
	return nil
}

// Checkpoint syncs and commits the workspace, titled after prompt. It
// returns "" when checkpoints are off or nothing changed.
func (w *Workspace) Checkpoint(prompt string) (string, error) {
	if w.checkpoints == nil {
		return "", nil
	}
	if err := w.Sync(); err != nil {
		return "", err
	}
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	hash, err := w.checkpoints.CreateCheckpoint(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return hash, nil
}

// History lists checkpoints, newest first
func (w *Workspace) History(limit int) ([]git.Checkpoint, error) {
	if w.repo == nil {
		return nil, nil
	}
	return w.repo.Log(limit)
}

// Close stops following the FileMap and the disk
func (w *Workspace) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.unsubscribe()
		<-w.done
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}
