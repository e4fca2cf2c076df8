// Package shard implements the posting reader:
// random-access decode of a term's posting list from its shard
// ("barrel"), plus the deterministic term->shard hash the merger uses
// to place terms at build time.
package shard

import "github.com/cespare/xxhash/v2"

// DefaultShardCount is the default shard fan-out.
const DefaultShardCount = 4

// ID returns the deterministic shard a term belongs to. The merger
// (internal/merge) records its result as each lexicon entry's shard id,
// which the query path reads back, and LRUReader.Preload recomputes it,
// so it wraps xxhash's portable, unseeded Sum64String rather than any
// process-salted hash.
func ID(term string, nShards int) uint32 {
	return uint32(xxhash.Sum64String(term) % uint64(nShards))
}
