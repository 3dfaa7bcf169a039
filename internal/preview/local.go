package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

// Publisher receives each build result; the preview server implements it
type Publisher interface {
	Publish(files filemap.FileMap, status RuntimeStatus)
}

// LocalRuntime checks the FileMap and hands good snapshots to a Publisher,
// which serves them over HTTP.
type LocalRuntime struct {
	files     *filemap.Store
	publisher Publisher

	mu     sync.Mutex
	status RuntimeStatus
	cancel context.CancelFunc
	seq    uint64
}

var _ Runtime = (*LocalRuntime)(nil)

// NewLocalRuntime creates an idle runtime over files
func NewLocalRuntime(files *filemap.Store, publisher Publisher) *LocalRuntime {
	return &LocalRuntime{
		files:     files,
		publisher: publisher,
		status:    RuntimeStatus{State: StatusIdle},
	}
}

// Refresh starts a build of the current effective FileMap and returns
// without waiting for it.
func (r *LocalRuntime) Refresh(ctx context.Context) error {
	snapshot := r.files.Effective()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	buildCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.status = RuntimeStatus{State: StatusRunning}
	r.mu.Unlock()

	recovery.SafeGoContext(buildCtx, "local-preview-build", func(ctx context.Context) {
		r.build(ctx, seq, snapshot)
	})
	return nil
}

func (r *LocalRuntime) build(ctx context.Context, seq uint64, snapshot filemap.FileMap) {
	errs := Validate(snapshot)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq || ctx.Err() != nil {
		return
	}

	if len(errs) > 0 {
		r.status = RuntimeStatus{State: StatusError, Errors: errs}
		logger.Debugf("preview validation failed: %s", strings.Join(errs, "; "))
	} else {
		r.status = RuntimeStatus{State: StatusSuccess}
	}
	if r.publisher != nil {
		r.publisher.Publish(snapshot, r.status)
	}
}

// Restore hands the current files to the publisher when a cached build is
// reused in a new process. Nothing is rebuilt and the status is unchanged.
func (r *LocalRuntime) Restore() {
	snapshot := r.files.Effective()
	if errs := Validate(snapshot); len(errs) > 0 || r.publisher == nil {
		return
	}
	r.publisher.Publish(snapshot, RuntimeStatus{State: StatusSuccess})
}

// Status reports the last build result
func (r *LocalRuntime) Status(ctx context.Context) (RuntimeStatus, error) {
	if err := ctx.Err(); err != nil {
		return RuntimeStatus{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.status
	status.Errors = append([]string(nil), r.status.Errors...)
	return status, nil
}

// Stop abandons any build in progress
func (r *LocalRuntime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.seq++
	r.status = RuntimeStatus{State: StatusIdle}
}

// Validate lists the problems that would keep fm from rendering
func Validate(fm filemap.FileMap) []string {
	var errs []string

	if _, ok := fm["/index.html"]; !ok {
		errs = append(errs, "index.html is missing")
	}
	for _, p := range fm.Paths() {
		if strings.Trim(p, "/") == "" {
			errs = append(errs, "file with an empty path")
			continue
		}
		if strings.HasSuffix(p, ".json") {
			var v interface{}
			if err := json.Unmarshal([]byte(fm[p].Code), &v); err != nil {
				errs = append(errs, fmt.Sprintf("%s: invalid JSON: %v", strings.TrimPrefix(p, "/"), err))
			}
		}
	}
	return errs
}
