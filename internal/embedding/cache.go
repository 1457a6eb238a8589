package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hyperjump/lexrag/internal/metrics"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = time.Hour

// CachedEmbedder wraps an embedder with a TTL cache keyed by the xxhash of the
// text. Concurrent misses for the same text share one call.
type CachedEmbedder struct {
	embedder Embedder
	cache    *ttlcache.Cache[uint64, []float32]
	sfGroup  singleflight.Group
	logger   *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedEmbedder wraps embedder. capacity bounds the number of entries.
func NewCachedEmbedder(embedder Embedder, capacity int, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []ttlcache.Option[uint64, []float32]{
		ttlcache.WithTTL[uint64, []float32](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, []float32](uint64(capacity)))
	}
	cache := ttlcache.New(opts...)
	go cache.Start()
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// Embed returns the cached vector or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := xxhash.Sum64String(text)
	if item := c.cache.Get(key); item != nil {
		c.hits.Add(1)
		metrics.RecordCacheHit()
		return item.Value(), nil
	}

	result, err, shared := c.sfGroup.Do(fmt.Sprintf("%x", key), func() (any, error) {
		c.misses.Add(1)
		metrics.RecordCacheMiss()
		emb, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, emb, ttlcache.DefaultTTL)
		return emb, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("singleflight hit for embedding", zap.Uint64("key", key))
	}
	return result.([]float32), nil
}

// EmbedBatch serves cached texts from the cache and embeds the rest in one
// call to the wrapped embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if item := c.cache.Get(xxhash.Sum64String(text)); item != nil {
			c.hits.Add(1)
			metrics.RecordCacheHit()
			out[i] = item.Value()
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	c.misses.Add(uint64(len(missing)))
	for range missing {
		metrics.RecordCacheMiss()
	}
	vecs, err := c.embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, i := range missingIdx {
		out[i] = vecs[j]
		c.cache.Set(xxhash.Sum64String(missing[j]), vecs[j], ttlcache.DefaultTTL)
	}
	return out, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.embedder.Dimensions() }

// Close stops the cache and closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Stop()
	return c.embedder.Close()
}

// CacheStats reports lookups since creation.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Items  int    `json:"items"`
}

// Stats returns cache statistics.
func (c *CachedEmbedder) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.cache.Len(),
	}
}
