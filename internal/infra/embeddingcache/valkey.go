package embeddingcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/photo-caption/internal/domain/faq"
)

const defaultValkeyKey = "faq:embeddings"

// ValkeyStore persists the cache as one JSON value in a Valkey-compatible
// database so several instances share a single computation.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, key string) *ValkeyStore {
	if key == "" {
		key = defaultValkeyKey
	}
	return &ValkeyStore{client: client, key: key}
}

func (s *ValkeyStore) Load(ctx context.Context) (faq.EmbeddingCache, bool, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build())
	payload, err := result.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return faq.EmbeddingCache{}, false, nil
		}
		return faq.EmbeddingCache{}, false, fmt.Errorf("get %s: %w", s.key, err)
	}
	var cache faq.EmbeddingCache
	if err := json.Unmarshal([]byte(payload), &cache); err != nil {
		return faq.EmbeddingCache{}, false, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return cache, true, nil
}

// Save overwrites the key in a single SET, which Valkey applies atomically.
func (s *ValkeyStore) Save(ctx context.Context, cache faq.EmbeddingCache) error {
	payload, err := json.Marshal(cache)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.key).Value(string(payload)).Build()
	return s.client.Do(ctx, cmd).Error()
}

var _ faq.CacheStore = (*ValkeyStore)(nil)
