package preview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/models"
)

type recordingPublisher struct {
	mu       sync.Mutex
	files    filemap.FileMap
	statuses []RuntimeStatus
}

func (p *recordingPublisher) Publish(files filemap.FileMap, status RuntimeStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = files
	p.statuses = append(p.statuses, status)
}

func (p *recordingPublisher) last() (filemap.FileMap, RuntimeStatus, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return nil, RuntimeStatus{}, 0
	}
	return p.files, p.statuses[len(p.statuses)-1], len(p.statuses)
}

func waitRuntime(t *testing.T, r *LocalRuntime, want Status) RuntimeStatus {
	t.Helper()
	var st RuntimeStatus
	require.Eventually(t, func() bool {
		st, _ = r.Status(context.Background())
		return st.State == want
	}, time.Second, 2*time.Millisecond)
	return st
}

func TestLocalRuntimePublishesValidSnapshot(t *testing.T) {
	files := filemap.NewStore()
	files.Merge([]models.GeneratedFile{{Path: "/src/App.jsx", Content: "export default () => <h1>Hi</h1>"}})
	pub := &recordingPublisher{}
	r := NewLocalRuntime(files, pub)

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.State)

	require.NoError(t, r.Refresh(context.Background()))
	waitRuntime(t, r, StatusSuccess)

	published, status, _ := pub.last()
	assert.Equal(t, StatusSuccess, status.State)
	assert.Contains(t, published, "/src/App.jsx")
	assert.Contains(t, published, "/index.html")
}

func TestLocalRuntimeReportsErrors(t *testing.T) {
	files := filemap.NewStore()
	files.Merge([]models.GeneratedFile{{Path: "/package.json", Content: "{broken"}})
	r := NewLocalRuntime(files, nil)

	require.NoError(t, r.Refresh(context.Background()))
	st := waitRuntime(t, r, StatusError)
	require.Len(t, st.Errors, 1)
	assert.Contains(t, st.Errors[0], "package.json: invalid JSON")
}

func TestLocalRuntimeStop(t *testing.T) {
	r := NewLocalRuntime(filemap.NewStore(), nil)
	require.NoError(t, r.Refresh(context.Background()))
	r.Stop()

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate(filemap.Defaults()))

	errs := Validate(filemap.FileMap{"/vercel.json": {Code: "nope"}})
	assert.Len(t, errs, 2)
	assert.Equal(t, "index.html is missing", errs[0])
	assert.Contains(t, errs[1], "vercel.json")
}

func TestBridgeWithLocalRuntime(t *testing.T) {
	files := filemap.NewStore()
	pub := &recordingPublisher{}
	b := NewBridge(NewLocalRuntime(files, pub), files, nil, testConfig())
	defer b.Close()

	b.SetActiveTab(TabPreview)
	waitStatus(t, b, StatusSuccess)

	_, status, n := pub.last()
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusSuccess, status.State)
}

func TestLocalRuntimeRestore(t *testing.T) {
	files := filemap.NewStore()
	pub := &recordingPublisher{}
	r := NewLocalRuntime(files, pub)

	r.Restore()
	published, status, n := pub.last()
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusSuccess, status.State)
	assert.Contains(t, published, "/index.html")

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.State, "restore does not build")

	files.Merge([]models.GeneratedFile{{Path: "/bad.json", Content: "{"}})
	r.Restore()
	_, _, n = pub.last()
	assert.Equal(t, 1, n, "invalid files are not restored")
}
