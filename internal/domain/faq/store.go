package faq

import "context"

// CacheStore persists the corpus embedding cache between runs. Load returns
// false when nothing has been stored yet. Save must replace the previous
// cache atomically so readers never observe a partial write.
type CacheStore interface {
	Load(ctx context.Context) (EmbeddingCache, bool, error)
	Save(ctx context.Context, cache EmbeddingCache) error
}
