package sourcecache

import (
	"sync"
	"time"
)

// MemCache is the in-memory Cache backend: a plain map behind a
// mutex, with a single-writer batching layer so bursts of concurrent Add
// calls (nine per terrain request) commit together.
type MemCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[Key]entry

	writeMu    sync.Mutex
	writing    bool
	rerun      bool
	pending    map[Key]Payload

	changed chan []Key
}

// NewMemCache builds a MemCache with the given TTL.
func NewMemCache(ttl time.Duration) *MemCache {
	return &MemCache{
		ttl:     ttl,
		entries: make(map[Key]entry),
		pending: make(map[Key]Payload),
		changed: make(chan []Key, 64),
	}
}

func (c *MemCache) Get(keys []Key) map[Key]Payload {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Key]Payload, len(keys))
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			out[k] = e.payload
		}
	}
	return out
}

func (c *MemCache) KnownKeys(keys []Key) map[Key]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Key]bool, len(keys))
	for _, k := range keys {
		_, ok := c.entries[k]
		out[k] = ok
	}
	return out
}

// Add queues a key for the next batch commit. If no commit is currently in
// flight, it starts one; if one is in flight, it sets the rerun flag so the
// writer loops once more after the current batch finishes, picking up this
// and any other Adds that arrived meanwhile.
func (c *MemCache) Add(key Key, payload Payload) {
	c.writeMu.Lock()
	c.pending[key] = payload

	if c.writing {
		c.rerun = true
		c.writeMu.Unlock()
		return
	}
	c.writing = true
	c.writeMu.Unlock()

	c.runBatches()
}

func (c *MemCache) runBatches() {
	for {
		c.writeMu.Lock()
		batch := c.pending
		c.pending = make(map[Key]Payload)
		c.writeMu.Unlock()

		c.commit(batch)

		c.writeMu.Lock()
		if c.rerun {
			c.rerun = false
			c.writeMu.Unlock()
			continue
		}
		c.writing = false
		c.writeMu.Unlock()
		return
	}
}

func (c *MemCache) commit(batch map[Key]Payload) {
	if len(batch) == 0 {
		return
	}

	now := time.Now()
	newKeys := make([]Key, 0, len(batch))

	c.mu.Lock()
	for k, p := range batch {
		c.entries[k] = entry{payload: p, insertedAt: now}
		newKeys = append(newKeys, k)
	}
	c.mu.Unlock()

	select {
	case c.changed <- newKeys:
	default:
		// Slow consumer: drop the signal rather than block the writer; the
		// coalescer's next scheduled pass (or the next batch's signal)
		// will observe these keys via KnownKeys regardless.
	}
}

func (c *MemCache) ClearExpired(pinned map[Key]bool) {
	cutoff := time.Now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if pinned[k] {
			continue
		}
		if e.insertedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

func (c *MemCache) Changed() <-chan []Key { return c.changed }

func (c *MemCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemCache) Close() error { return nil }

var _ Cache = (*MemCache)(nil)
