package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// LRUCache memoizes calibrated scores with LRU eviction and TTL. Scoring is
// deterministic for a fixed artifact, so entries never go stale before their
// TTL; the TTL only bounds memory held for conversations that went quiet.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*scoreEntry
	head     *scoreEntry // most recently used
	tail     *scoreEntry // eviction candidate
}

type scoreEntry struct {
	key       string
	score     float64
	expiresAt time.Time
	prev      *scoreEntry
	next      *scoreEntry
}

// NewLRUCache creates a score cache holding at most capacity entries.
func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		entries:  make(map[string]*scoreEntry),
	}
}

// Get returns the cached score for a feature-vector key.
func (c *LRUCache) Get(ctx context.Context, key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if time.Now().After(e.expiresAt) {
		c.unlink(e)
		delete(c.entries, key)
		return 0, false
	}

	c.touch(e)
	return e.score, true
}

// Set stores a score under the key with the given TTL.
func (c *LRUCache) Set(ctx context.Context, key string, score float64, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(time.Duration(ttlSeconds) * time.Second)

	if e, ok := c.entries[key]; ok {
		e.score = score
		e.expiresAt = expiresAt
		c.touch(e)
		return nil
	}

	e := &scoreEntry{key: key, score: score, expiresAt: expiresAt}
	c.pushFront(e)
	c.entries[key] = e

	if len(c.entries) > c.capacity && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.entries, evicted.key)
	}

	return nil
}

// Delete removes a key from the cache.
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.unlink(e)
		delete(c.entries, key)
	}
	return nil
}

// touch moves an entry to the recently-used end.
func (c *LRUCache) touch(e *scoreEntry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRUCache) pushFront(e *scoreEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRUCache) unlink(e *scoreEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// Ensure LRUCache implements the ScoreCache port.
var _ ports.ScoreCache = (*LRUCache)(nil)
