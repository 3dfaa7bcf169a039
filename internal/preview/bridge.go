package preview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

// Config controls bridge timing
type Config struct {
	// SessionID keys the build cache; see SessionIDFor
	SessionID string
	// SettleDelay is how long after switching to the preview tab a build starts
	SettleDelay time.Duration
	// PollInterval and MaxPolls bound how long a build is watched
	PollInterval time.Duration
	MaxPolls     int
	// SafetyTimeout force-resolves a build that is still running
	SafetyTimeout time.Duration
}

// DefaultConfig settles for 800ms and polls once a second for 15 seconds
func DefaultConfig(sessionID string) Config {
	return Config{
		SessionID:     sessionID,
		SettleDelay:   800 * time.Millisecond,
		PollInterval:  time.Second,
		MaxPolls:      15,
		SafetyTimeout: 30 * time.Second,
	}
}

// Bridge drives a Runtime from tab switches and FileMap changes. Builds are
// skipped while the cache says the current files were already built.
type Bridge struct {
	runtime Runtime
	files   *filemap.Store
	cache   *BuildCache
	cfg     Config
	now     func() time.Time

	mu       sync.Mutex
	state    BuildState
	tab      Tab
	settle   *time.Timer
	cancel   context.CancelFunc
	seq      uint64
	closed   bool
	subs     map[int]chan BuildState
	nextSub  int
	stopWait func()
}

// NewBridge creates a bridge for one preview session and starts following
// changes to files.
func NewBridge(runtime Runtime, files *filemap.Store, cache *BuildCache, cfg Config) *Bridge {
	if cfg.SessionID == "" {
		cfg.SessionID = SessionIDFor("")
	}
	if cache == nil {
		cache = OpenBuildCache("")
	}
	b := &Bridge{
		runtime: runtime,
		files:   files,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
		state:   BuildState{SessionID: cfg.SessionID, Status: StatusIdle},
		tab:     TabCode,
		subs:    make(map[int]chan BuildState),
	}
	if e, ok := cache.Get(cfg.SessionID); ok && e.Built {
		b.state.LastBuiltAt = e.LastBuiltAt
	}

	changes, unsubscribe := files.Subscribe()
	b.stopWait = unsubscribe
	recovery.SafeGo("preview-file-watch", func() {
		for range changes {
			b.filesChanged()
		}
	})
	return b
}

// SessionID identifies this preview session
func (b *Bridge) SessionID() string {
	return b.cfg.SessionID
}

// State returns the current build state
func (b *Bridge) State() BuildState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe delivers every state change. A slow reader only misses
// intermediate states.
func (b *Bridge) Subscribe() (<-chan BuildState, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	ch := make(chan BuildState, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// SetActiveTab records which tab is visible. Switching into the preview tab
// schedules a build after the settle delay; leaving before it fires cancels it.
func (b *Bridge) SetActiveTab(tab Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.tab
	b.tab = tab
	if b.closed {
		return
	}

	if tab != TabPreview {
		b.stopSettleLocked()
		return
	}
	if prev == TabPreview {
		return
	}

	b.stopSettleLocked()
	b.settle = time.AfterFunc(b.cfg.SettleDelay, b.activate)
}

func (b *Bridge) stopSettleLocked() {
	if b.settle != nil {
		b.settle.Stop()
		b.settle = nil
	}
}

func (b *Bridge) activate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.settle = nil
	if b.closed || b.tab != TabPreview || b.state.Status == StatusRunning {
		return
	}

	if e, ok := b.validCacheLocked(); ok {
		logger.Debugf("🗂️  Preview %s served from cache", b.cfg.SessionID)
		b.state.Status = StatusSuccess
		b.state.LastBuiltAt = e.LastBuiltAt
		b.state.ErrorDetail = ""
		b.state.Cached = true
		b.publishLocked()
		return
	}
	b.startLocked()
}

func (b *Bridge) validCacheLocked() (CacheEntry, bool) {
	e, ok := b.cache.Get(b.cfg.SessionID)
	if !ok || !e.Built {
		return CacheEntry{}, false
	}
	if e.Fingerprint != "" && e.Fingerprint != b.files.Effective().Fingerprint() {
		return CacheEntry{}, false
	}
	return e, true
}

// ManualRefresh drops the cache and rebuilds. It does nothing while a build
// is already running.
func (b *Bridge) ManualRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.state.Status == StatusRunning {
		return
	}
	b.dropCacheLocked()
	b.startLocked()
}

// ClearCache forgets the cached build and returns to idle without building
func (b *Bridge) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelRunLocked()
	b.dropCacheLocked()
	b.state.Status = StatusIdle
	b.state.ErrorDetail = ""
	b.publishLocked()
}

// Stop aborts a running build and returns to idle
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopSettleLocked()
	b.cancelRunLocked()
	b.runtime.Stop()
	b.state.Status = StatusIdle
	b.publishLocked()
}

// Close stops every timer and closes subscriber channels
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.stopSettleLocked()
	b.cancelRunLocked()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	stopWait := b.stopWait
	b.mu.Unlock()

	stopWait()
}

// Handle lets other owners trigger a refresh without holding the bridge
type Handle struct {
	bridge *Bridge
}

// Handle returns a refresh handle scoped to this session
func (b *Bridge) Handle() Handle {
	return Handle{bridge: b}
}

// ManualRefresh forces a rebuild of the session's preview
func (h Handle) ManualRefresh() {
	if h.bridge != nil {
		h.bridge.ManualRefresh()
	}
}

// State returns the session's build state
func (h Handle) State() BuildState {
	if h.bridge == nil {
		return BuildState{Status: StatusIdle}
	}
	return h.bridge.State()
}

func (b *Bridge) filesChanged() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	// A reseed with the files that were already built keeps the cache
	if e, ok := b.validCacheLocked(); ok && e.Fingerprint != "" {
		return
	}
	b.dropCacheLocked()
	if b.tab != TabPreview || b.settle != nil {
		return
	}

	// Visible preview follows the new files right away
	b.cancelRunLocked()
	b.startLocked()
}

func (b *Bridge) dropCacheLocked() {
	b.state.Cached = false
	if err := b.cache.Delete(b.cfg.SessionID); err != nil {
		logger.Warnf("⚠️  Failed to clear preview cache: %v", err)
	}
}

func (b *Bridge) cancelRunLocked() {
	b.seq++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Bridge) startLocked() {
	b.cancelRunLocked()
	seq := b.seq
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.state.Status = StatusRunning
	b.state.ErrorDetail = ""
	b.state.Cached = false
	b.publishLocked()

	recovery.SafeGoContext(ctx, "preview-build", func(ctx context.Context) {
		b.build(ctx, seq)
	})
}

// build refreshes the runtime and polls it until it reports a result or the
// poll budget runs out, which counts as success.
func (b *Bridge) build(ctx context.Context, seq uint64) {
	log := logger.Component("preview")
	log.Info().Str("session", b.cfg.SessionID).Msg("🔨 Building preview")

	safety := time.AfterFunc(b.cfg.SafetyTimeout, func() {
		log.Warn().Str("session", b.cfg.SessionID).Msg("⏰ Preview build timed out, assuming success")
		b.finish(seq, StatusSuccess, "")
	})
	defer safety.Stop()

	if err := b.runtime.Refresh(ctx); err != nil {
		if ctx.Err() == nil {
			b.finish(seq, StatusError, err.Error())
		}
		return
	}

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := b.runtime.Status(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			log.Debug().Err(err).Int("attempt", attempt).Msg("preview status unavailable")
		case len(status.Errors) > 0:
			b.finish(seq, StatusError, strings.Join(status.Errors, "; "))
			return
		case status.State == StatusError:
			b.finish(seq, StatusError, "Build failed")
			return
		case status.State == StatusSuccess:
			b.finish(seq, StatusSuccess, "")
			return
		}

		if attempt >= b.cfg.MaxPolls {
			log.Debug().Int("attempts", attempt).Msg("poll budget exhausted, assuming success")
			b.finish(seq, StatusSuccess, "")
			return
		}
	}
}

func (b *Bridge) finish(seq uint64, status Status, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq || b.state.Status != StatusRunning {
		return
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}

	b.state.Status = status
	if status == StatusSuccess {
		b.state.LastBuiltAt = b.now()
		b.state.ErrorDetail = ""
		entry := CacheEntry{
			LastBuiltAt: b.state.LastBuiltAt,
			Built:       true,
			Fingerprint: b.files.Effective().Fingerprint(),
		}
		if err := b.cache.Put(b.cfg.SessionID, entry); err != nil {
			logger.Warnf("⚠️  Failed to save preview cache: %v", err)
		}
		logger.Component("preview").Info().Str("session", b.cfg.SessionID).Msg("✅ Preview ready")
	} else {
		b.state.ErrorDetail = truncateDetail(detail)
		logger.Component("preview").Warn().Str("session", b.cfg.SessionID).Str("detail", b.state.ErrorDetail).Msg("❌ Preview build failed")
	}
	b.publishLocked()
}

func (b *Bridge) publishLocked() {
	state := b.state
	for _, ch := range b.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
