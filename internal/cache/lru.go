package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/vanpelt/sitecraft/internal/recovery"
)

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) > e.ttl
}

// LRU evicts the least recently used entry once MaxSize is exceeded
type LRU[V any] struct {
	config Config
	now    func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
	stats Stats

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Cache[int] = (*LRU[int])(nil)

// Option customizes an LRU
type Option func(*lruOptions)

type lruOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *lruOptions) { o.now = now }
}

// NewLRU creates a cache and starts its background sweep if configured
func NewLRU[V any](config Config, opts ...Option) *LRU[V] {
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultConfig().MaxSize
	}

	c := &LRU[V]{
		config: config,
		now:    o.now,
		items:  make(map[string]*list.Element),
		order:  list.New(),
		stats: Stats{
			MaxSize:     config.MaxSize,
			LastCleanup: o.now(),
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if config.CleanupPeriod > 0 {
		recovery.SafeGo("cache-cleanup", c.sweep)
	} else {
		close(c.done)
	}
	return c
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	e := el.Value.(*entry[V])
	if e.expired(c.now()) {
		c.removeLocked(el)
		c.stats.Misses++
		return zero, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.storedAt = c.now()
		e.ttl = ttl
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry[V]{key: key, value: value, storedAt: c.now(), ttl: ttl})
	c.items[key] = el

	for c.order.Len() > c.config.MaxSize {
		c.removeLocked(c.order.Back())
		c.stats.Evictions++
	}
}

func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

func (c *LRU[V]) Clear(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(el)
		}
	}
}

func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, el := range c.items {
		if el.Value.(*entry[V]).expired(now) {
			c.removeLocked(el)
		}
	}
	c.stats.LastCleanup = now
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.items)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close stops the sweep and drops every entry
func (c *LRU[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

func (c *LRU[V]) removeLocked(el *list.Element) {
	delete(c.items, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}

func (c *LRU[V]) sweep() {
	defer close(c.done)

	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Purge()
		case <-c.stop:
			return
		}
	}
}
