package readcache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with TTL expiration and a background
// sweep for expired entries.
type MemoryCache struct {
	mu      sync.RWMutex
	data    map[string]memoryEntry
	config  MemoryConfig
	ticker  *time.Ticker
	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryConfig holds configuration for the in-memory cache.
type MemoryConfig struct {
	// Name is the layer identifier used in logs and metrics.
	Name string
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration
	// SweepInterval is how often expired entries are removed.
	SweepInterval time.Duration
}

// DefaultMemoryConfig returns sensible defaults for a read cache.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Name:          "memory",
		DefaultTTL:    30 * time.Second,
		SweepInterval: time.Minute,
	}
}

// NewMemoryCache creates an in-memory cache and starts the sweep goroutine.
func NewMemoryCache(config MemoryConfig) *MemoryCache {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 30 * time.Second
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}

	c := &MemoryCache{
		data:   make(map[string]memoryEntry),
		config: config,
		ticker: time.NewTicker(config.SweepInterval),
		stop:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweep()
	return c
}

func (c *MemoryCache) sweep() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.data {
				if now.After(e.expiresAt) {
					delete(c.data, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrMiss
	}
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	cp := make([]byte, len(value))
	copy(cp, value)

	c.mu.Lock()
	c.data[key] = memoryEntry{value: cp, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Name() string {
	return c.config.Name
}

// Close stops the sweep goroutine.
func (c *MemoryCache) Close() error {
	c.stopped.Do(func() {
		c.ticker.Stop()
		close(c.stop)
	})
	c.wg.Wait()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
