package faq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

type stubChatClient struct {
	fn    func(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
	calls int
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.calls++
	return s.fn(ctx, req)
}

func chatReply(content string) chatgpt.ChatCompletionResponse {
	resp := chatgpt.ChatCompletionResponse{Usage: chatgpt.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	resp.Choices = append(resp.Choices, struct {
		Message chatgpt.Message `json:"message"`
	}{Message: chatgpt.Message{Role: "assistant", Content: content}})
	return resp
}

func newTestService(t *testing.T, cfg Config, source *fakeSource, embedder *fakeEmbedder, client ChatClient) Service {
	t.Helper()
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.75
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	matcher := newTestMatcher(source, &fakeStore{}, embedder)
	return NewService(cfg, matcher, client, newTestLogger())
}

func TestAnswerReturnsCorpusAnswer(t *testing.T) {
	source := &fakeSource{entries: exampleCorpus()}
	svc := newTestService(t, Config{}, source, newExampleEmbedder(), nil)

	resp, err := svc.Answer(context.Background(), Request{Question: "  How do I describe it?  "})
	require.NoError(t, err)
	require.True(t, resp.Matched)
	require.Equal(t, "How do I describe it?", resp.Question)
	require.Equal(t, "It generates captions.", resp.Answer)
	require.Equal(t, exampleQuestion, resp.MatchedQuestion)
	require.Equal(t, "corpus", resp.Source)
	require.Equal(t, ConfidenceMedium, resp.Confidence)
	require.Len(t, resp.Related, 1)
	require.Nil(t, resp.TokenUsage)
}

func TestAnswerHighConfidenceForExactQuestion(t *testing.T) {
	svc := newTestService(t, Config{}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), nil)

	resp, err := svc.Answer(context.Background(), Request{Question: exampleQuestion})
	require.NoError(t, err)
	require.Equal(t, ConfidenceHigh, resp.Confidence)
}

func TestAnswerFallsBackWhenNothingMatches(t *testing.T) {
	svc := newTestService(t, Config{FallbackAnswer: "Ask a human."}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), nil)

	resp, err := svc.Answer(context.Background(), Request{Question: "What is the weather?"})
	require.NoError(t, err)
	require.False(t, resp.Matched)
	require.Equal(t, "Ask a human.", resp.Answer)
	require.Equal(t, "fallback", resp.Source)
	require.Equal(t, ConfidenceLow, resp.Confidence)
	require.Empty(t, resp.Related)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	embedder := newExampleEmbedder()
	svc := newTestService(t, Config{}, &fakeSource{entries: exampleCorpus()}, embedder, nil)

	_, err := svc.Answer(context.Background(), Request{Question: "   "})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Zero(t, embedder.totalCalls())
}

func TestAnswerEmbedsCorpusOnce(t *testing.T) {
	source := &fakeSource{entries: exampleCorpus()}
	embedder := newExampleEmbedder()
	svc := newTestService(t, Config{}, source, embedder, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Answer(context.Background(), Request{Question: "How do I describe it?"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, source.calls)
	// one corpus batch plus one query embedding per call
	require.Equal(t, 4, embedder.totalCalls())
}

func TestAnswerPhrasesWithLLM(t *testing.T) {
	client := &stubChatClient{fn: func(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		require.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		require.True(t, strings.Contains(req.Messages[1].Content, "It generates captions."))
		return chatReply("  It writes captions for your photos.  "), nil
	}}
	cfg := Config{Model: "gpt-4o-mini", GenerateAnswer: true}
	svc := newTestService(t, cfg, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), client)

	resp, err := svc.Answer(context.Background(), Request{Question: "How do I describe it?"})
	require.NoError(t, err)
	require.Equal(t, "It writes captions for your photos.", resp.Answer)
	require.Equal(t, "llm", resp.Source)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 15, resp.TokenUsage.TotalTokens)
}

func TestAnswerKeepsCorpusAnswerWhenLLMFails(t *testing.T) {
	client := &stubChatClient{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		return chatgpt.ChatCompletionResponse{}, errors.New("quota exceeded")
	}}
	svc := newTestService(t, Config{GenerateAnswer: true}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), client)

	resp, err := svc.Answer(context.Background(), Request{Question: "How do I describe it?"})
	require.NoError(t, err)
	require.Equal(t, "It generates captions.", resp.Answer)
	require.Equal(t, "corpus", resp.Source)
	require.Equal(t, 1, client.calls)
}

func TestAnswerSkipsLLMWithoutMatch(t *testing.T) {
	client := &stubChatClient{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		return chatReply("unused"), nil
	}}
	svc := newTestService(t, Config{GenerateAnswer: true}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), client)

	_, err := svc.Answer(context.Background(), Request{Question: "What is the weather?"})
	require.NoError(t, err)
	require.Zero(t, client.calls)
}

func TestAnswerSurfacesCorpusErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("no such file")}
	svc := newTestService(t, Config{}, source, newExampleEmbedder(), nil)

	_, err := svc.Answer(context.Background(), Request{Question: "How do I describe it?"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeCorpusLoad))

	// a later call retries once the corpus is fixed
	source.err = nil
	source.entries = exampleCorpus()
	resp, err := svc.Answer(context.Background(), Request{Question: "How do I describe it?"})
	require.NoError(t, err)
	require.True(t, resp.Matched)
}

func TestEntryLookup(t *testing.T) {
	svc := newTestService(t, Config{}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), nil)

	entry, err := svc.Entry(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, exampleQuestion, entry.Question)

	_, err = svc.Entry(context.Background(), 42)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWarmAndReload(t *testing.T) {
	source := &fakeSource{entries: exampleCorpus()}
	embedder := newExampleEmbedder()
	svc := newTestService(t, Config{}, source, embedder, nil)

	warm, err := svc.Warm(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, warm.Entries)
	require.Equal(t, "test-model", warm.Model)
	require.Equal(t, Fingerprint("test-model", exampleCorpus()), warm.Fingerprint)

	source.entries = append(source.entries, Entry{ID: 2, Question: "Is it free?", Answer: "Yes."})
	reloaded, err := svc.Reload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Entries)
	require.NotEqual(t, warm.Fingerprint, reloaded.Fingerprint)
	require.Equal(t, 2, embedder.totalCalls())
}

func TestRankRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(t, Config{}, &fakeSource{entries: exampleCorpus()}, newExampleEmbedder(), nil)
	_, err := svc.Rank(context.Background(), "", 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}
