package faq

import (
	"time"

	"github.com/yanqian/photo-caption/pkg/metrics"
)

// Entry is one authored question/answer pair of the corpus.
type Entry struct {
	ID       int    `json:"id,omitempty" yaml:"id,omitempty"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// EmbeddingCache holds corpus embeddings aligned by position with the
// corpus they were computed from.
type EmbeddingCache struct {
	Fingerprint string      `json:"fingerprint"`
	Model       string      `json:"model"`
	Vectors     [][]float32 `json:"vectors"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ValidFor reports whether the cache can serve a corpus with the given
// fingerprint and size.
func (c EmbeddingCache) ValidFor(fingerprint string, size int) bool {
	if c.Fingerprint == "" || c.Fingerprint != fingerprint {
		return false
	}
	if len(c.Vectors) != size {
		return false
	}
	for _, v := range c.Vectors {
		if len(v) == 0 {
			return false
		}
	}
	return true
}

// Match is the outcome of a best-match lookup. Found is false when the best
// score stayed under the threshold.
type Match struct {
	Found bool
	Entry Entry
	Index int
	Score float64
}

// ScoredEntry pairs a corpus entry with its similarity to a query.
type ScoredEntry struct {
	Entry Entry   `json:"entry"`
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Confidence buckets a score for display.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Request encapsulates a FAQ question.
type Request struct {
	Question string `json:"question"`
}

// RelatedEntry is a ranked corpus question shown alongside an answer.
type RelatedEntry struct {
	ID       int     `json:"id,omitempty"`
	Question string  `json:"question"`
	Score    float64 `json:"score"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Question        string              `json:"question"`
	Answer          string              `json:"answer"`
	Matched         bool                `json:"matched"`
	Score           float64             `json:"score"`
	Confidence      Confidence          `json:"confidence"`
	MatchedQuestion string              `json:"matchedQuestion,omitempty"`
	Source          string              `json:"source"`
	Related         []RelatedEntry      `json:"related,omitempty"`
	DurationMs      int64               `json:"durationMs,omitempty"`
	TokenUsage      *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// WarmResult summarises the corpus and cache state after warming.
type WarmResult struct {
	Entries     int       `json:"entries"`
	Fingerprint string    `json:"fingerprint"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"createdAt"`
}
