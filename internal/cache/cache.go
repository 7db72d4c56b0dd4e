package cache

import (
	"context"
	"sync"
	"time"
)

// ListCache holds serialized event list responses. Invalidate drops every
// entry at once; lists are invalidated on any event or attendee change.
//
// Get reports the generation it looked in, hit or miss. Set only stores
// under that generation, so a list read that raced an Invalidate never
// lands in the current one. A negative generation means unknown and Set
// ignores it.
type ListCache interface {
	Get(ctx context.Context, key string) (val []byte, gen int64, ok bool)
	Set(ctx context.Context, gen int64, key string, val []byte)
	Invalidate(ctx context.Context)
}

type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	gen int64
	m   map[string]entry
}
type entry struct {
	val []byte
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, int64, bool) {
	now := time.Now()
	c.mu.RLock()
	gen := c.gen
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, gen, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		if cur, still := c.m[key]; still && cur.exp == e.exp {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, gen, false
	}

	return e.val, gen, true
}

func (c *Cache) Set(_ context.Context, gen int64, key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// stale snapshot: an invalidation happened after the caller's lookup
	if gen < 0 || gen != c.gen {
		return
	}
	c.m[key] = entry{val: val, exp: time.Now().Add(c.ttl)}
}

func (c *Cache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.gen++
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
