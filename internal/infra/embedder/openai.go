package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
)

const defaultMaxBatchTokens = 200_000 // provider cap is 300k per request

// EmbeddingClient is the subset of the ChatGPT client used for embeddings.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
}

// OpenAIEmbedder calls an OpenAI compatible embeddings API, batching inputs
// under a token budget.
type OpenAIEmbedder struct {
	client         EmbeddingClient
	model          string
	maxBatchTokens int
	countTokens    func(string) int
	logger         *slog.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewOpenAIEmbedder constructs an embedder backed by the ChatGPT client.
func NewOpenAIEmbedder(client EmbeddingClient, model string, logger *slog.Logger) *OpenAIEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	e := &OpenAIEmbedder{
		client:         client,
		model:          strings.TrimSpace(model),
		maxBatchTokens: defaultMaxBatchTokens,
		logger:         logger.With("component", "embedder.openai"),
	}
	e.countTokens = e.bpeTokens
	return e
}

// Embed requests embeddings for texts and returns them in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out         = make([][]float32, 0, len(texts))
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("embedding result count mismatch: expected %d got %d", len(batch), len(resp.Data))
		}
		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			out = append(out, vec)
		}
		e.logger.Debug("embedding batch done", "inputs", len(batch), "tokens", batchTokens, "usage", resp.Usage.TotalTokens)
		batch = nil
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.countTokens(text)
		if tokens > e.maxBatchTokens {
			return nil, fmt.Errorf("text too large for embedding request: tokens=%d", tokens)
		}
		if batchTokens+tokens > e.maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// bpeTokens uses the model's BPE when it can be loaded and a conservative
// estimate otherwise.
func (e *OpenAIEmbedder) bpeTokens(text string) int {
	e.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(e.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		}
		if err != nil {
			e.logger.Warn("tokenizer unavailable, estimating tokens", "model", e.model, "error", err)
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return estimateTokens(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

var _ faq.Embedder = (*OpenAIEmbedder)(nil)

// estimateTokens provides a rough, upper-biased token count.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}
