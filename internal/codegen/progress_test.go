package codegen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastProgress() ProgressConfig {
	return ProgressConfig{
		MinInterval: time.Millisecond,
		MaxInterval: 3 * time.Millisecond,
		MinStep:     3,
		MaxStep:     20,
		Ceiling:     95,
	}
}

func TestStageFor(t *testing.T) {
	cases := []struct {
		progress float64
		stage    int
	}{
		{0, 0},
		{19.9, 0},
		{20, 1},
		{39, 1},
		{40, 2},
		{64.5, 2},
		{65, 3},
		{84, 3},
		{85, 4},
		{100, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.stage, StageFor(tc.progress), "progress %v", tc.progress)
	}
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "Analyzing", StageName(0))
	assert.Equal(t, "Coding", StageName(2))
	assert.Equal(t, "Finalizing", StageName(TerminalStage))
	assert.Equal(t, "Finalizing", StageName(9))
	assert.Equal(t, "Analyzing", StageName(-1))
	assert.Len(t, StageNames(), 5)
}

func TestETA(t *testing.T) {
	assert.Equal(t, 13*time.Second, ETA(0))
	assert.Equal(t, 6*time.Second, ETA(50))
	assert.Equal(t, time.Second, ETA(95))
	assert.Equal(t, time.Second, ETA(100))
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, Describe(0), "Analyzing")
	assert.Contains(t, Describe(50), "React components")
	assert.Contains(t, Describe(100), "ready")
}

func TestSimulatorMonotonicAndCapped(t *testing.T) {
	var (
		mu     sync.Mutex
		values []float64
	)
	done := make(chan struct{})
	sim := NewSimulator(fastProgress(), func(v float64) {
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
		if v >= 95 {
			close(done)
		}
	})
	sim.Start()
	defer sim.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("simulator never reached the ceiling")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
		// Each tick adds between 3 and 20 unless clamped at the ceiling
		if values[i] < 95 {
			step := values[i] - values[i-1]
			assert.GreaterOrEqual(t, step, 3.0)
			assert.LessOrEqual(t, step, 20.0)
		}
	}
	assert.Equal(t, 95.0, values[len(values)-1])
	assert.Equal(t, 95.0, sim.Value())
}

func TestSimulatorStop(t *testing.T) {
	ticks := make(chan float64, 100)
	cfg := fastProgress()
	cfg.MinInterval = 20 * time.Millisecond
	cfg.MaxInterval = 20 * time.Millisecond

	sim := NewSimulator(cfg, func(v float64) { ticks <- v })
	sim.Start()
	sim.Stop()
	sim.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, ticks)
	assert.Zero(t, sim.Value())
}

func TestNewSimulatorNormalizesConfig(t *testing.T) {
	sim := NewSimulator(ProgressConfig{MinInterval: 5, MaxInterval: 1, MinStep: 4, MaxStep: 2, Ceiling: 150}, nil)
	assert.Equal(t, 95.0, sim.cfg.Ceiling)
	assert.Equal(t, sim.cfg.MinInterval, sim.cfg.MaxInterval)
	assert.Equal(t, sim.cfg.MinStep, sim.cfg.MaxStep)
}
