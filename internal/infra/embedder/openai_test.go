package embedder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
)

type stubEmbeddingClient struct {
	fn      func(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
	batches [][]string
}

func (s *stubEmbeddingClient) CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error) {
	s.batches = append(s.batches, req.Input.([]string))
	return s.fn(ctx, req)
}

func echoLengths(_ context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error) {
	inputs := req.Input.([]string)
	resp := chatgpt.EmbeddingResponse{Model: req.Model}
	for i, text := range inputs {
		resp.Data = append(resp.Data, chatgpt.EmbeddingData{Index: i, Embedding: []float32{float32(len(text)), 1}})
	}
	return resp, nil
}

func newTestEmbedder(client EmbeddingClient) *OpenAIEmbedder {
	e := NewOpenAIEmbedder(client, "text-embedding-3-small", slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.countTokens = estimateTokens
	return e
}

func TestOpenAIEmbedderKeepsInputOrder(t *testing.T) {
	client := &stubEmbeddingClient{fn: echoLengths}
	e := newTestEmbedder(client)

	vectors, err := e.Embed(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, client.batches, 1)
	require.Equal(t, [][]float32{{1, 1}, {3, 1}, {2, 1}}, vectors)
}

func TestOpenAIEmbedderSplitsBatchesByTokenBudget(t *testing.T) {
	client := &stubEmbeddingClient{fn: echoLengths}
	e := newTestEmbedder(client)
	e.maxBatchTokens = 4

	vectors, err := e.Embed(context.Background(), []string{"aaaa", "bbbb", "cc", "dd"})
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	require.Equal(t, [][]string{{"aaaa", "bbbb"}, {"cc", "dd"}}, client.batches)
	require.Equal(t, float32(2), vectors[3][0])
}

func TestOpenAIEmbedderRejectsOversizedText(t *testing.T) {
	e := newTestEmbedder(&stubEmbeddingClient{fn: echoLengths})
	e.maxBatchTokens = 2

	_, err := e.Embed(context.Background(), []string{"this text is far too long"})
	require.ErrorContains(t, err, "too large")
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	client := &stubEmbeddingClient{fn: func(context.Context, chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error) {
		return chatgpt.EmbeddingResponse{Data: []chatgpt.EmbeddingData{{Embedding: []float32{1}}}}, nil
	}}
	_, err := newTestEmbedder(client).Embed(context.Background(), []string{"a", "b"})
	require.ErrorContains(t, err, "mismatch")
}

func TestOpenAIEmbedderPropagatesClientError(t *testing.T) {
	client := &stubEmbeddingClient{fn: func(context.Context, chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error) {
		return chatgpt.EmbeddingResponse{}, errors.New("boom")
	}}
	_, err := newTestEmbedder(client).Embed(context.Background(), []string{"a"})
	require.ErrorContains(t, err, "boom")
}

func TestEstimateTokens(t *testing.T) {
	require.Zero(t, estimateTokens(""))
	require.Equal(t, 2, estimateTokens("abcd"))
	require.Equal(t, 3, estimateTokens("a b c"))
}

func TestDeterministicEmbedder(t *testing.T) {
	e := NewDeterministicEmbedder(8)
	vectors, err := e.Embed(context.Background(), []string{"Hello", " hello ", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Len(t, vectors[0], 8)
	require.Equal(t, vectors[0], vectors[1])
	require.NotEqual(t, vectors[0], vectors[2])
}
