package codegen

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vanpelt/sitecraft/internal/recovery"
)

// TerminalStage is the last stage ordinal
const TerminalStage = 4

// stageThresholds are the progress values at which stages 1..4 begin
var stageThresholds = [TerminalStage]float64{20, 40, 65, 85}

var stageNames = [TerminalStage + 1]string{"Analyzing", "Designing", "Coding", "Optimizing", "Finalizing"}

// StageFor maps a progress percentage onto a stage ordinal 0..4
func StageFor(progress float64) int {
	stage := 0
	for i, threshold := range stageThresholds {
		if progress >= threshold {
			stage = i + 1
		}
	}
	return stage
}

// StageName returns the label for a stage ordinal
func StageName(stage int) string {
	if stage < 0 {
		stage = 0
	}
	if stage > TerminalStage {
		stage = TerminalStage
	}
	return stageNames[stage]
}

// StageNames returns every stage label in order
func StageNames() []string {
	return stageNames[:]
}

// Describe returns the one-line status shown under the progress bar
func Describe(progress float64) string {
	switch {
	case progress < 15:
		return "Analyzing your requirements and planning structure..."
	case progress < 35:
		return "Designing responsive layout and UI components..."
	case progress < 65:
		return "Writing React components and functionality..."
	case progress < 85:
		return "Optimizing performance and adding interactions..."
	case progress < 95:
		return "Final testing and deployment preparation..."
	default:
		return "Your website is ready! 🎉"
	}
}

// ETA is the displayed time-remaining estimate; it is cosmetic like the
// progress value itself.
func ETA(progress float64) time.Duration {
	seconds := math.Max(1, math.Round((100-progress)/8))
	return time.Duration(seconds) * time.Second
}

// ProgressConfig shapes the simulated progress curve
type ProgressConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	MinStep     float64
	MaxStep     float64
	Ceiling     float64
}

// DefaultProgressConfig ticks every 300-800ms by 3-20 points up to 95
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		MinInterval: 300 * time.Millisecond,
		MaxInterval: 800 * time.Millisecond,
		MinStep:     3,
		MaxStep:     20,
		Ceiling:     95,
	}
}

// Simulator advances a progress value on a timer while the real request is
// outstanding. It never reaches 100 on its own; the caller does that when the
// request finishes.
type Simulator struct {
	cfg    ProgressConfig
	onTick func(progress float64)

	mu      sync.Mutex
	value   float64
	stopped bool
	stop    chan struct{}
}

// NewSimulator creates a stopped simulator; onTick receives each new value
func NewSimulator(cfg ProgressConfig, onTick func(progress float64)) *Simulator {
	if cfg.Ceiling <= 0 || cfg.Ceiling > 100 {
		cfg.Ceiling = 95
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	if cfg.MaxStep < cfg.MinStep {
		cfg.MaxStep = cfg.MinStep
	}
	return &Simulator{cfg: cfg, onTick: onTick, stop: make(chan struct{})}
}

// Start begins ticking in the background
func (s *Simulator) Start() {
	recovery.SafeGo("progress-simulator", s.loop)
}

// Stop halts the ticker; safe to call more than once
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
}

// Value returns the current simulated progress
func (s *Simulator) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Simulator) nextInterval() time.Duration {
	spread := s.cfg.MaxInterval - s.cfg.MinInterval
	if spread <= 0 {
		return s.cfg.MinInterval
	}
	return s.cfg.MinInterval + time.Duration(rand.Int64N(int64(spread)+1))
}

func (s *Simulator) nextStep() float64 {
	return s.cfg.MinStep + rand.Float64()*(s.cfg.MaxStep-s.cfg.MinStep)
}

func (s *Simulator) loop() {
	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.value = math.Min(s.value+s.nextStep(), s.cfg.Ceiling)
		value := s.value
		reached := value >= s.cfg.Ceiling
		if reached {
			s.stopped = true
			close(s.stop)
		}
		s.mu.Unlock()

		if s.onTick != nil {
			s.onTick(value)
		}
		if reached {
			return
		}
		timer.Reset(s.nextInterval())
	}
}
