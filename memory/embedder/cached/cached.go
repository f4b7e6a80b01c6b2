// Package cached wraps any embedder with a ristretto read-through cache.
// Embeddings are deterministic for identical input and model version, so
// caching by content is safe; ristretto's lossy admission only ever costs
// a recomputation.
package cached

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/dgraph-io/ristretto"

	"github.com/memoriahq/memoria-go/memory"
)

// Embedder is a caching decorator around another embedder.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache sized for roughly maxVectors embeddings.
func New(inner memory.Embedder, maxVectors int64) (*Embedder, error) {
	if maxVectors <= 0 {
		maxVectors = 10_000
	}
	vectorCost := int64(inner.Dimensions() * 4)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxVectors * 10,
		MaxCost:     maxVectors * vectorCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or computes and caches it.
// The cached slice is shared; callers must not mutate returned vectors
// (the engine copies on index append).
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text, e.inner.Dimensions())

	if v, ok := e.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(key, vec, int64(len(vec)*4))
	return vec, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache's internal goroutines.
func (e *Embedder) Close() {
	e.cache.Close()
}

func cacheKey(text string, dims int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:", dims)
	h.Write([]byte(text))
	return h.Sum64()
}
