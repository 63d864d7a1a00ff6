package embeddingcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/yanqian/photo-caption/internal/domain/faq"
)

// FileStore keeps the embedding cache in a single JSON file. Saves go to a
// temporary sibling first and are renamed into place, so a failed write
// never damages the previous cache.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore builds a store over fs. A nil fs means the OS filesystem.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, path: path}
}

// Load returns ok=false when no cache file exists. An unreadable or
// malformed file is reported as an error.
func (s *FileStore) Load(_ context.Context) (faq.EmbeddingCache, bool, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return faq.EmbeddingCache{}, false, nil
		}
		return faq.EmbeddingCache{}, false, fmt.Errorf("read cache %s: %w", s.path, err)
	}
	var cache faq.EmbeddingCache
	if err := json.Unmarshal(raw, &cache); err != nil {
		return faq.EmbeddingCache{}, false, fmt.Errorf("decode cache %s: %w", s.path, err)
	}
	return cache, true, nil
}

// Save atomically replaces the cache file.
func (s *FileStore) Save(_ context.Context, cache faq.EmbeddingCache) error {
	payload, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace cache %s: %w", s.path, err)
	}
	return nil
}

var _ faq.CacheStore = (*FileStore)(nil)
