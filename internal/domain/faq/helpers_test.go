package faq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
)

type fakeSource struct {
	entries []Entry
	err     error
	calls   int
}

func (f *fakeSource) Load(context.Context) ([]Entry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

// fakeEmbedder maps known texts to vectors and counts calls by batch size.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	short   bool
	batches [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, errors.New("unknown text " + text)
		}
		out = append(out, vec)
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) corpusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, batch := range f.batches {
		if len(batch) > 1 {
			count++
		}
	}
	return count
}

func (f *fakeEmbedder) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeStore struct {
	cache   EmbeddingCache
	has     bool
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(context.Context) (EmbeddingCache, bool, error) {
	if f.loadErr != nil {
		return EmbeddingCache{}, false, f.loadErr
	}
	return f.cache, f.has, nil
}

func (f *fakeStore) Save(_ context.Context, cache EmbeddingCache) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.cache = cache
	f.has = true
	return nil
}

// unitAt returns a unit vector whose cosine with [1, 0] equals score.
func unitAt(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
