package codegen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

const failedMessage = "Failed to generate code"

// Status of a generation job
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Job is a snapshot of one generation request
type Job struct {
	Prompt    string
	ChatID    string
	Progress  float64
	Stage     int
	Status    Status
	Err       string
	Files     []string
	StartedAt time.Time
}

// Done reports whether the job reached a terminal status
func (j Job) Done() bool {
	return j.Status == StatusSuccess || j.Status == StatusError
}

// EventType identifies generator events
type EventType int

const (
	// EventStarted fires when a request is sent
	EventStarted EventType = iota
	// EventProgress fires on each simulated progress tick
	EventProgress
	// EventSuccess fires when files were merged
	EventSuccess
	// EventError fires when the request failed
	EventError
	// EventComplete fires a short while after EventSuccess
	EventComplete
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event carries the job state at the time it was emitted
type Event struct {
	Type EventType
	Job  Job

	seq uint64
}

// Backend is the code generation endpoint
type Backend interface {
	GenerateCode(ctx context.Context, chatID, message string) (*models.CodeResponse, error)
}

// Config controls generator timing
type Config struct {
	Debounce      time.Duration
	CompleteDelay time.Duration
	Progress      ProgressConfig
}

// DefaultConfig debounces for 500ms and signals completion 1s after success
func DefaultConfig() Config {
	return Config{
		Debounce:      500 * time.Millisecond,
		CompleteDelay: time.Second,
		Progress:      DefaultProgressConfig(),
	}
}

// Generator turns completed prompts into files merged into a FileMap store.
// At most one request is outstanding; a newer request cancels the older one
// and the older result is discarded.
type Generator struct {
	backend Backend
	files   *filemap.Store
	cfg     Config
	onEvent func(Event)

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	job      Job
	seq      uint64
	epoch    uint64 // bumped by Cancel
	pending  *time.Timer
	cancel   context.CancelFunc
	sim      *Simulator
	complete *time.Timer
	closed   bool

	emitMu       sync.Mutex
	emittedSeq   uint64
	emittedFinal bool
}

// NewGenerator creates a generator; onEvent may be nil
func NewGenerator(backend Backend, files *filemap.Store, cfg Config, onEvent func(Event)) *Generator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		backend:    backend,
		files:      files,
		cfg:        cfg,
		onEvent:    onEvent,
		baseCtx:    ctx,
		baseCancel: cancel,
		job:        Job{Status: StatusIdle},
	}
}

// Job returns the latest job snapshot
func (g *Generator) Job() Job {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Generate schedules generation for prompt after the debounce window. A call
// inside the window replaces the pending one. Blank prompts are ignored.
func (g *Generator) Generate(prompt, chatID string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if g.pending != nil {
		g.pending.Stop()
	}
	epoch := g.epoch
	g.pending = time.AfterFunc(g.cfg.Debounce, func() {
		g.run(g.baseCtx, prompt, chatID, epoch)
	})
}

// GenerateNow runs generation immediately and blocks until it finishes. It is
// used by headless callers that have no use for debouncing.
func (g *Generator) GenerateNow(ctx context.Context, prompt, chatID string) Job {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return g.Job()
	}
	g.mu.Lock()
	epoch := g.epoch
	g.mu.Unlock()
	return g.run(ctx, prompt, chatID, epoch)
}

// Close stops every timer and cancels the in-flight request
func (g *Generator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.seq++
	g.stopLocked()
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.baseCancel()
}

// Cancel abandons the pending and in-flight request without emitting a
// terminal event. A result arriving afterwards is not merged.
func (g *Generator) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.seq++
	g.epoch++
	g.stopLocked()
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.job = Job{Status: StatusIdle}
}

func (g *Generator) stopLocked() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	if g.sim != nil {
		g.sim.Stop()
		g.sim = nil
	}
	if g.complete != nil {
		g.complete.Stop()
		g.complete = nil
	}
}

func (g *Generator) run(parent context.Context, prompt, chatID string, epoch uint64) Job {
	g.mu.Lock()
	if g.closed || epoch != g.epoch {
		job := g.snapshotLocked()
		g.mu.Unlock()
		return job
	}
	g.stopLocked()
	g.seq++
	seq := g.seq

	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	g.job = Job{
		Prompt:    prompt,
		ChatID:    chatID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	sim := NewSimulator(g.cfg.Progress, func(v float64) { g.advance(seq, v) })
	g.sim = sim
	started := g.snapshotLocked()
	g.mu.Unlock()

	log := logger.Component("codegen")
	log.Info().Str("chat_id", chatID).Msg("⚙️  Generating code")

	g.emit(Event{Type: EventStarted, Job: started, seq: seq})
	sim.Start()

	resp, err := g.backend.GenerateCode(ctx, chatID, prompt)
	cancel()

	g.mu.Lock()
	if seq != g.seq {
		// Superseded or closed; a newer job owns the state now
		g.mu.Unlock()
		log.Debug().Str("chat_id", chatID).Msg("discarding superseded generation result")
		return Job{Prompt: prompt, ChatID: chatID, Status: StatusIdle}
	}
	sim.Stop()
	g.sim = nil
	g.cancel = nil

	g.job.Progress = 100
	g.job.Stage = TerminalStage

	var incoming filemap.FileMap
	if err == nil && resp != nil {
		incoming = filemap.FromGenerated(resp.Files)
	}
	if msg, ok := failure(resp, err, len(incoming)); !ok {
		g.job.Status = StatusError
		g.job.Err = msg
		final := g.snapshotLocked()
		g.mu.Unlock()

		log.Error().Str("chat_id", chatID).Str("error", msg).Msg("❌ Code generation failed")
		g.emit(Event{Type: EventError, Job: final, seq: seq})
		return final
	}

	g.job.Files = g.files.MergeMap(incoming)
	g.job.Status = StatusSuccess
	final := g.snapshotLocked()
	g.complete = time.AfterFunc(g.cfg.CompleteDelay, func() {
		g.mu.Lock()
		if seq != g.seq {
			g.mu.Unlock()
			return
		}
		g.complete = nil
		job := g.snapshotLocked()
		g.mu.Unlock()
		g.emit(Event{Type: EventComplete, Job: job, seq: seq})
	})
	g.mu.Unlock()

	log.Info().Str("chat_id", chatID).Int("files", len(final.Files)).Msg("✅ Code generated")
	g.emit(Event{Type: EventSuccess, Job: final, seq: seq})
	return final
}

// failure classifies a finished request; ok is false when it failed. files is
// the number of usable files after path normalization.
func failure(resp *models.CodeResponse, err error, files int) (msg string, ok bool) {
	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			return "Generation cancelled", false
		}
		return err.Error(), false
	case resp == nil:
		return failedMessage, false
	case !resp.Success || files == 0:
		if resp.Error != "" {
			return resp.Error, false
		}
		return failedMessage, false
	}
	return "", true
}

func (g *Generator) advance(seq uint64, value float64) {
	g.mu.Lock()
	if seq != g.seq || g.job.Status != StatusRunning || value <= g.job.Progress {
		g.mu.Unlock()
		return
	}
	g.job.Progress = value
	g.job.Stage = StageFor(value)
	job := g.snapshotLocked()
	g.mu.Unlock()

	g.emit(Event{Type: EventProgress, Job: job, seq: seq})
}

// emit delivers events in order, dropping ticks that lost a race with a
// newer job or with the job's terminal event.
func (g *Generator) emit(ev Event) {
	if g.onEvent == nil {
		return
	}
	g.emitMu.Lock()
	defer g.emitMu.Unlock()

	if ev.seq < g.emittedSeq {
		return
	}
	if ev.seq > g.emittedSeq {
		g.emittedSeq = ev.seq
		g.emittedFinal = false
	}
	if g.emittedFinal && ev.Type == EventProgress {
		return
	}
	if ev.Type == EventSuccess || ev.Type == EventError {
		g.emittedFinal = true
	}
	g.onEvent(ev)
}

func (g *Generator) snapshotLocked() Job {
	job := g.job
	job.Files = append([]string(nil), g.job.Files...)
	return job
}
