package shard

import (
	"container/list"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	applog "github.com/corpussearch/engine/pkg/logger"
	"github.com/corpussearch/engine/pkg/resilience"
)

// LRUReader is the cache-bounded Loader variant: it keeps at most
// MaxResident shards loaded, evicting the least-recently-used one when a
// new shard must be loaded.
//
// A single mutex guards the cache map and LRU list; a hot read of an
// already-resident shard still takes the lock just to bump LRU position.
type LRUReader struct {
	dir         string
	maxResident int

	mu       sync.Mutex
	loaded   map[uint32][]byte
	lruOrder *list.List // front = most recently used
	elems    map[uint32]*list.Element

	breaker *resilience.CircuitBreaker
	log     *slog.Logger
}

// NewLRUReader builds an LRUReader over dir's barrel_*.bin files,
// keeping at most maxResident resident at once. A circuit breaker guards
// against repeatedly retrying a shard file that fails to load (e.g.
// truncated or missing on disk).
func NewLRUReader(dir string, maxResident int) *LRUReader {
	if maxResident < 1 {
		maxResident = 1
	}
	return &LRUReader{
		dir:         dir,
		maxResident: maxResident,
		loaded:      make(map[uint32][]byte),
		lruOrder:    list.New(),
		elems:       make(map[uint32]*list.Element),
		breaker:     resilience.NewCircuitBreaker("shard-lru-load", resilience.CircuitBreakerConfig{}),
		log:         applog.WithComponent("shard.lru"),
	}
}

// Load returns shardID's bytes, loading it from disk on first use and
// evicting the least-recently-used resident shard if the cache is full.
func (r *LRUReader) Load(shardID uint32) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buf, ok := r.loaded[shardID]; ok {
		r.touch(shardID)
		return buf, nil
	}

	if len(r.loaded) >= r.maxResident {
		r.evictOldest()
	}

	var buf []byte
	err := r.breaker.Execute(func() error {
		var loadErr error
		buf, loadErr = os.ReadFile(filepath.Join(r.dir, fmt.Sprintf("barrel_%d.bin", shardID)))
		return loadErr
	})
	if err != nil {
		return nil, fmt.Errorf("shard: loading barrel %d: %w", shardID, err)
	}

	r.loaded[shardID] = buf
	r.elems[shardID] = r.lruOrder.PushFront(shardID)
	r.log.Debug("loaded shard", "shard_id", shardID, "bytes", len(buf))
	return buf, nil
}

// Preload warms the cache for a batch of terms ahead of time, mirroring
// BarrelManager::preload_barrels.
func (r *LRUReader) Preload(terms []string, nShards int) {
	needed := make(map[uint32]struct{})
	for _, t := range terms {
		needed[ID(t, nShards)] = struct{}{}
	}
	for shardID := range needed {
		if _, err := r.Load(shardID); err != nil {
			r.log.Warn("preload failed", "shard_id", shardID, "error", err)
		}
	}
}

// MemoryUsage returns the total byte size of resident shards.
func (r *LRUReader) MemoryUsage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, buf := range r.loaded {
		total += len(buf)
	}
	return total
}

func (r *LRUReader) touch(shardID uint32) {
	if e, ok := r.elems[shardID]; ok {
		r.lruOrder.MoveToFront(e)
	}
}

func (r *LRUReader) evictOldest() {
	back := r.lruOrder.Back()
	if back == nil {
		return
	}
	evictID := back.Value.(uint32)
	r.lruOrder.Remove(back)
	delete(r.elems, evictID)
	delete(r.loaded, evictID)
	r.log.Debug("evicted shard", "shard_id", evictID)
}
