package faq

import "context"

// CorpusSource loads the static FAQ corpus.
type CorpusSource interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Embedder turns texts into vectors, one per input in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
