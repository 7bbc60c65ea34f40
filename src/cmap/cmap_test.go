package cmap

import (
	"sort"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func hashInts(k int) uint32 {
	return XXHash(strconv.Itoa(k))
}

func TestGetOrSet(t *testing.T) {
	m := New[int, int](DefaultShardCount, hashInts)
	assert.Equal(t, 7, m.GetOrSet(5, func() int { return 7 }))
	// Second call must return the original value, not recompute.
	assert.Equal(t, 7, m.GetOrSet(5, func() int { return 8 }))
	v, present := m.Get(5)
	assert.True(t, present)
	assert.Equal(t, 7, v)
}

func TestGetMissing(t *testing.T) {
	m := New[int, int](DefaultShardCount, hashInts)
	_, present := m.Get(42)
	assert.False(t, present)
}

func TestValues(t *testing.T) {
	m := New[int, int](DefaultShardCount, hashInts)
	m.GetOrSet(5, func() int { return 7 })
	m.GetOrSet(7, func() int { return 5 })
	vals := m.Values()
	// Order isn't guaranteed so we must sort it now.
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	assert.Equal(t, []int{5, 7}, vals)
}

func TestComputesOnceUnderContention(t *testing.T) {
	m := New[int, int](DefaultShardCount, hashInts)
	var computations int64
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			v := m.GetOrSet(1, func() int {
				atomic.AddInt64(&computations, 1)
				return 42
			})
			assert.Equal(t, 42, v)
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.EqualValues(t, 1, computations)
}

func TestBadShardCount(t *testing.T) {
	assert.Panics(t, func() {
		New[int, int](3, hashInts)
	})
}
