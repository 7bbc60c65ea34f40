package cmap

import (
	"github.com/cespare/xxhash/v2"
)

// XXHash calculates the xxHash of a string, which is a fast high-quality
// hash function suitable for sharding a Map.
func XXHash(s string) uint32 {
	return uint32(xxhash.Sum64String(s))
}

// XXHashes calculates a combined xxHash for a series of strings.
func XXHashes(s ...string) uint32 {
	var result uint64
	for _, x := range s {
		result ^= xxhash.Sum64String(x)
	}
	return uint32(result)
}
