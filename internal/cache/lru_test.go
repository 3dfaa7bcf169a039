package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU(t *testing.T, size int, ttl time.Duration) (*LRU[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewLRU[string](Config{MaxSize: size, DefaultTTL: ttl}, WithClock(clock.Now))
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newTestLRU(t, 4, 0)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	c.Set("a", "2")
	v, _ = c.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Len())

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.0001)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(t, 2, 0)

	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a") // b is now oldest
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU(t, 4, 30*time.Second)

	c.Set("chats", "list")
	c.SetWithTTL("forever", "x", 0)

	clock.Advance(29 * time.Second)
	_, ok := c.Get("chats")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("chats")
	assert.False(t, ok)

	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestLRUPurgeAndClear(t *testing.T) {
	c, clock := newTestLRU(t, 8, time.Second)

	c.Set("chats:list", "a")
	c.SetWithTTL("chats:info:1", "b", time.Hour)
	c.SetWithTTL("user", "c", time.Hour)

	clock.Advance(2 * time.Second)
	c.Purge()
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, clock.Now(), c.Stats().LastCleanup)

	c.Clear("chats:")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("user")
	assert.True(t, ok)

	c.Delete("user")
	assert.Zero(t, c.Len())
}

func TestLRUBackgroundSweepStopsOnClose(t *testing.T) {
	c := NewLRU[int](Config{MaxSize: 4, DefaultTTL: time.Millisecond, CleanupPeriod: 5 * time.Millisecond})
	c.Set("a", 1)

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
