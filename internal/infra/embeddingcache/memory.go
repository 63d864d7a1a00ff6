package embeddingcache

import (
	"context"
	"sync"

	"github.com/yanqian/photo-caption/internal/domain/faq"
)

// MemoryStore keeps the cache for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	cache *faq.EmbeddingCache
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (faq.EmbeddingCache, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return faq.EmbeddingCache{}, false, nil
	}
	return cloneCache(*s.cache), true, nil
}

func (s *MemoryStore) Save(_ context.Context, cache faq.EmbeddingCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := cloneCache(cache)
	s.cache = &cloned
	return nil
}

func cloneCache(in faq.EmbeddingCache) faq.EmbeddingCache {
	out := in
	out.Vectors = make([][]float32, len(in.Vectors))
	for i, v := range in.Vectors {
		out.Vectors[i] = append([]float32(nil), v...)
	}
	return out
}

var _ faq.CacheStore = (*MemoryStore)(nil)
