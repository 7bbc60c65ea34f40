// Package cmap contains a small thread-safe sharded map.
// It backs the per-(target, context) resolved view cache; the important
// property is that inserting one entry never blocks computation of another,
// and that at most one caller ever computes a given entry.
package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultShardCount is a reasonable default shard count for the view cache.
const DefaultShardCount = 1 << 6

// A Map is the top-level map type. All functions on it are threadsafe.
// It should be constructed via New() rather than creating an instance directly.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hasher func(K) uint32
	mask   uint32
}

// New creates a new Map using the given hasher to hash items in it.
// The shard count must be a power of 2; it will panic if not.
func New[K comparable, V any](shardCount uint32, hasher func(K) uint32) *Map[K, V] {
	mask := shardCount - 1
	if (shardCount & mask) != 0 {
		panic(fmt.Sprintf("Shard count %d is not a power of 2", shardCount))
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		mask:   mask,
		hasher: hasher,
	}
	for i := range m.shards {
		m.shards[i].m = map[K]*entry[V]{}
	}
	return m
}

// Get returns the value for a key, or false if it hasn't been computed yet.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.shards[m.hasher(key)&m.mask].Get(key)
}

// GetOrSet returns the existing value for key, or runs compute to produce one.
// The shard lock is only held to claim the entry, not while computing, so
// concurrent callers computing different entries never block one another;
// concurrent callers of the same key wait for the single computation.
func (m *Map[K, V]) GetOrSet(key K, compute func() V) V {
	return m.shards[m.hasher(key)&m.mask].GetOrSet(key, compute)
}

// Values returns a slice of all the computed values in the map.
// No particular consistency or ordering guarantees are made.
func (m *Map[K, V]) Values() []V {
	ret := []V{}
	for i := range m.shards {
		ret = append(ret, m.shards[i].Values()...)
	}
	return ret
}

// An entry holds a single map value and the machinery to compute it once.
type entry[V any] struct {
	once sync.Once
	done atomic.Bool
	val  V
}

// A shard is one of the individual shards of a map.
type shard[K comparable, V any] struct {
	m map[K]*entry[V]
	l sync.Mutex
}

func (s *shard[K, V]) Get(key K) (val V, present bool) {
	s.l.Lock()
	e, ok := s.m[key]
	s.l.Unlock()
	if !ok || !e.done.Load() {
		return val, false
	}
	return e.val, true
}

func (s *shard[K, V]) GetOrSet(key K, compute func() V) V {
	s.l.Lock()
	e, ok := s.m[key]
	if !ok {
		e = &entry[V]{}
		s.m[key] = e
	}
	s.l.Unlock()
	e.once.Do(func() {
		e.val = compute()
		e.done.Store(true)
	})
	return e.val
}

func (s *shard[K, V]) Values() []V {
	s.l.Lock()
	defer s.l.Unlock()
	ret := make([]V, 0, len(s.m))
	for _, e := range s.m {
		if e.done.Load() {
			ret = append(ret, e.val)
		}
	}
	return ret
}
