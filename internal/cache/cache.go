// Package cache provides the bounded, string-keyed LRU cache behind the
// config-level processor cache.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// shardCount must be a power of two.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

// DefaultCapacity is the total number of entries of a cache created with a
// non-positive capacity.
const DefaultCapacity = 1024

// LRU is a sharded least-recently-used cache. Each shard has its own lock
// and evicts independently, so the total capacity is approximate.
//
// LRU is safe for concurrent use.
type LRU[V any] struct {
	shards   [shardCount]shard[V]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	lru     lruList
}

type entry[V any] struct {
	value V
	node  *lruNode
}

// New returns a cache holding about capacity entries.
func New[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRU[V]{capacity: max(1, (capacity+shardCount-1)/shardCount)}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]*entry[V])
	}
	return c
}

func (c *LRU[V]) shard(key string) *shard[V] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key)) // never fails
	return &c.shards[h.Sum64()&shardMask]
}

// Get returns the value stored under key and marks it recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	s := c.shard(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	var v V
	if ok {
		s.lru.moveToFront(e.node)
		v = e.value
	}
	s.mu.Unlock()
	if !ok {
		c.misses.Add(1)
		return v, false
	}
	c.hits.Add(1)
	return v, true
}

// Set stores value under key, evicting the least recently used entries of
// the shard when it is full.
func (c *LRU[V]) Set(key string, value V) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.lru.moveToFront(e.node)
		return
	}
	for s.lru.len >= c.capacity {
		old, ok := s.lru.removeOldest()
		if !ok {
			break
		}
		delete(s.entries, old)
		c.evictions.Add(1)
	}
	s.entries[key] = &entry[V]{value: value, node: s.lru.pushFront(key)}
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Clear removes every entry. Statistics are kept.
func (c *LRU[V]) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[string]*entry[V])
		s.lru = lruList{}
		s.mu.Unlock()
	}
}

// Stats reports the size and effectiveness of a cache.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache statistics.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity * shardCount,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
