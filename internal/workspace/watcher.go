package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

const defaultWatchDebounce = 150 * time.Millisecond

// Watcher follows edits made to the mirror by other programs and merges them
// back into the FileMap. Writes the mirror made itself are ignored.
type Watcher struct {
	mirror   *Mirror
	files    *filemap.Store
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher watches the mirror's root and every directory below it
func NewWatcher(mirror *Mirror, files *filemap.Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		mirror:   mirror,
		files:    files,
		watcher:  fw,
		root:     mirror.Root(),
		debounce: defaultWatchDebounce,
		pending:  make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if err := w.addTree(w.root); err != nil {
		cancel()
		fw.Close()
		return nil, err
	}

	recovery.SafeGoWithCleanup("workspace-watcher", w.loop, func() { close(w.done) })
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("⚠️  Workspace watcher error for %s: %v", w.root, err)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, ok := w.relevant(event)
	if !ok {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warnf("⚠️  %v", err)
			}
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[rel]; ok {
		t.Stop()
	}
	w.pending[rel] = time.AfterFunc(w.debounce, func() { w.pickUp(rel) })
}

// relevant filters to writes of ordinary files inside the root
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return "", false
	}
	name := filepath.Base(rel)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".tmp") {
		return "", false
	}
	return rel, true
}

func (w *Watcher) pickUp(rel string) {
	w.mu.Lock()
	delete(w.pending, rel)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	content, err := w.mirror.Read(rel)
	if err != nil {
		logger.Debugf("workspace file %s vanished before it was read: %v", rel, err)
		return
	}
	if w.mirror.Echo(rel, content) {
		return
	}

	w.mirror.Adopt(rel, content)
	w.files.MergeMap(filemap.FileMap{"/" + rel: {Code: content}})
	logger.Infof("✏️  Picked up local edit to %s", rel)
}

// Close stops watching. Pending edits are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for rel, t := range w.pending {
		t.Stop()
		delete(w.pending, rel)
	}
	w.mu.Unlock()

	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}
