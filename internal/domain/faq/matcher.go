package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
	"github.com/yanqian/photo-caption/pkg/util"
)

// Matcher finds the closest corpus question to a free-text query using
// embedding similarity. It owns no state of its own; callers keep the
// corpus and cache it returns.
type Matcher struct {
	source   CorpusSource
	store    CacheStore
	embedder Embedder
	model    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewMatcher wires a matcher from its collaborators.
func NewMatcher(source CorpusSource, store CacheStore, embedder Embedder, model string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		source:   source,
		store:    store,
		embedder: embedder,
		model:    model,
		logger:   logger.With("component", "faq.matcher"),
		now:      util.NowUTC,
	}
}

// LoadCorpus reads and validates the static corpus.
func (m *Matcher) LoadCorpus(ctx context.Context) ([]Entry, error) {
	entries, err := m.source.Load(ctx)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeCorpusLoad) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeCorpusLoad, "load corpus", err)
	}
	if err := ValidateCorpus(entries); err != nil {
		return nil, err
	}
	m.logger.Info("faq corpus loaded", "entries", len(entries))
	return entries, nil
}

// EnsureEmbeddings returns a cache valid for corpus. A persisted cache with a
// matching fingerprint is reused; otherwise every question is embedded and the
// result is persisted. Nothing is written when embedding fails.
func (m *Matcher) EnsureEmbeddings(ctx context.Context, corpus []Entry) (EmbeddingCache, error) {
	fingerprint := Fingerprint(m.model, corpus)

	cached, ok, err := m.store.Load(ctx)
	switch {
	case err != nil:
		m.logger.Warn("embedding cache unreadable, recomputing",
			"error", apperrors.Wrap(apperrors.CodeCacheIO, "load embedding cache", err))
	case ok && cached.ValidFor(fingerprint, len(corpus)):
		m.logger.Info("embedding cache hit", "entries", len(corpus), "fingerprint", shortFingerprint(fingerprint))
		return cached, nil
	case ok:
		m.logger.Info("embedding cache stale, recomputing", "cached", shortFingerprint(cached.Fingerprint), "current", shortFingerprint(fingerprint))
	}

	questions := make([]string, len(corpus))
	for i, entry := range corpus {
		questions[i] = entry.Question
	}
	vectors, err := m.embedder.Embed(ctx, questions)
	if err != nil {
		return EmbeddingCache{}, apperrors.Wrap(apperrors.CodeEmbeddingService, "embed corpus", err)
	}
	if err := checkVectors(vectors, len(corpus)); err != nil {
		return EmbeddingCache{}, apperrors.Wrap(apperrors.CodeEmbeddingService, "embed corpus", err)
	}

	fresh := EmbeddingCache{
		Fingerprint: fingerprint,
		Model:       m.model,
		Vectors:     vectors,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.store.Save(ctx, fresh); err != nil {
		m.logger.Warn("embedding cache not persisted, keeping it in memory",
			"error", apperrors.Wrap(apperrors.CodeCacheIO, "save embedding cache", err))
	} else {
		m.logger.Info("embedding cache saved", "entries", len(corpus), "fingerprint", shortFingerprint(fingerprint))
	}
	return fresh, nil
}

// EmbedQuery embeds a single query string.
func (m *Matcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingService, "embed query", err)
	}
	if err := checkVectors(vectors, 1); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingService, "embed query", err)
	}
	return vectors[0], nil
}

// FindBestMatch embeds query and returns the most similar corpus entry. A
// best score under threshold yields Match{Found: false} and no error.
func (m *Matcher) FindBestMatch(ctx context.Context, query string, corpus []Entry, cache EmbeddingCache, threshold float64) (Match, error) {
	vector, err := m.EmbedQuery(ctx, query)
	if err != nil {
		return Match{}, err
	}
	scores, err := scoreCache(vector, corpus, cache)
	if err != nil {
		return Match{}, err
	}
	return pickMatch(corpus, scores, threshold), nil
}

// TopMatches ranks the corpus against query and returns the best k entries.
func (m *Matcher) TopMatches(ctx context.Context, query string, corpus []Entry, cache EmbeddingCache, k int) ([]ScoredEntry, error) {
	vector, err := m.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	scores, err := scoreCache(vector, corpus, cache)
	if err != nil {
		return nil, err
	}
	return rankEntries(corpus, scores, k), nil
}

func scoreCache(vector []float32, corpus []Entry, cache EmbeddingCache) ([]float64, error) {
	if len(cache.Vectors) != len(corpus) {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingService, "score query",
			fmt.Errorf("cache holds %d vectors for %d entries", len(cache.Vectors), len(corpus)))
	}
	scores, err := scoreAll(vector, cache.Vectors)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbeddingService, "score query", err)
	}
	return scores, nil
}

func pickMatch(corpus []Entry, scores []float64, threshold float64) Match {
	idx := bestIndex(scores)
	if idx < 0 {
		return Match{}
	}
	match := Match{Entry: corpus[idx], Index: idx, Score: scores[idx]}
	match.Found = match.Score >= threshold
	return match
}

func checkVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vectors), want)
	}
	dims := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		if dims >= 0 && len(v) != dims {
			return errors.New("embedding service returned vectors of different dimensions")
		}
		dims = len(v)
	}
	return nil
}

func shortFingerprint(fp string) string {
	fp = strings.TrimSpace(fp)
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
