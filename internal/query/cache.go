package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	applog "github.com/corpussearch/engine/pkg/logger"
	appredis "github.com/corpussearch/engine/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "corpussearch:query:"

// Cache is an optional result cache for Executor.Search, keyed on
// normalized query terms + mode + top-K. A singleflight.Group collapses
// concurrent identical queries into one computation, same shape as the
// teacher's searcher/cache package.
type Cache struct {
	client *appredis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps an already-connected Redis client.
func NewCache(client *appredis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    applog.WithComponent("query.cache"),
	}
}

// GetOrCompute returns a cached Response for plan if present, otherwise
// runs compute, caches its result, and returns it. Concurrent callers
// with the same plan share one computation.
func (c *Cache) GetOrCompute(ctx context.Context, plan Plan, compute func() (Response, error)) (Response, bool, error) {
	key := c.buildKey(plan)
	if resp, ok := c.get(ctx, key); ok {
		return resp, true, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.get(ctx, key); ok {
			return resp, nil
		}
		resp, err := compute()
		if err != nil {
			return Response{}, err
		}
		c.set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return Response{}, false, err
	}
	return val.(Response), false, nil
}

func (c *Cache) get(ctx context.Context, key string) (Response, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !appredis.IsNilError(err) {
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.log.Warn("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return Response{}, false
	}
	c.hits.Add(1)
	return resp, true
}

func (c *Cache) set(ctx context.Context, key string, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate clears every cached result.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("query: invalidating cache: %w", err)
	}
	c.log.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit/miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) buildKey(plan Plan) string {
	terms := append([]string(nil), plan.Terms...)
	// PHRASE order is significant ("machine learning" != "learning
	// machine"), so only OR/AND normalize term order for the key.
	if plan.Mode != ModePhrase {
		sort.Strings(terms)
	}
	raw := fmt.Sprintf("%s|%s|top_k=%d", plan.Mode, strings.Join(terms, ","), plan.TopK)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
