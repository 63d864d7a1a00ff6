package faq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
	"github.com/yanqian/photo-caption/pkg/metrics"
	"github.com/yanqian/photo-caption/pkg/util"
)

// Service exposes FAQ answering on top of the semantic matcher.
type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
	Entries(ctx context.Context) ([]Entry, error)
	Entry(ctx context.Context, id int) (Entry, error)
	Rank(ctx context.Context, query string, k int) ([]ScoredEntry, error)
	Warm(ctx context.Context) (WarmResult, error)
	Reload(ctx context.Context) (WarmResult, error)
}

// ChatClient phrases answers from matched entries when enabled.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

type service struct {
	cfg     Config
	matcher *Matcher
	client  ChatClient
	logger  *slog.Logger

	mu     sync.Mutex
	corpus []Entry
	cache  *EmbeddingCache
}

// NewService wires up the FAQ domain. client may be nil when answers are
// served verbatim from the corpus.
func NewService(cfg Config, matcher *Matcher, client ChatClient, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.FallbackAnswer) == "" {
		cfg.FallbackAnswer = defaultFallbackAnswer
	}
	return &service{
		cfg:     cfg,
		matcher: matcher,
		client:  client,
		logger:  logger.With("component", "faq.service"),
	}
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}

	corpus, cache, err := s.state(ctx)
	if err != nil {
		return Response{}, err
	}

	vector, err := s.matcher.EmbedQuery(ctx, question)
	if err != nil {
		return Response{}, err
	}
	scores, err := scoreCache(vector, corpus, cache)
	if err != nil {
		return Response{}, err
	}
	match := pickMatch(corpus, scores, s.cfg.SimilarityThreshold)
	s.logger.Info("faq match computed", "matched", match.Found, "score", match.Score, "index", match.Index)

	resp := Response{
		Question:   question,
		Score:      match.Score,
		Confidence: ConfidenceLow,
		Source:     "fallback",
		Answer:     s.cfg.FallbackAnswer,
	}
	if !match.Found {
		resp.DurationMs = util.MillisSince(start)
		return resp, nil
	}

	related := rankEntries(corpus, scores, s.cfg.TopK)
	resp.Matched = true
	resp.MatchedQuestion = match.Entry.Question
	resp.Confidence = confidenceFor(match.Score)
	resp.Answer = match.Entry.Answer
	resp.Source = "corpus"
	resp.Related = toRelated(related)

	if s.cfg.GenerateAnswer && s.client != nil {
		answer, usage, err := s.phrase(ctx, question, related)
		if err != nil {
			s.logger.Warn("faq answer phrasing failed, serving corpus answer", "error", err)
		} else {
			resp.Answer = answer
			resp.Source = "llm"
			resp.TokenUsage = usage.Ptr()
		}
	}

	resp.DurationMs = util.MillisSince(start)
	return resp, nil
}

func (s *service) Entries(ctx context.Context) ([]Entry, error) {
	corpus, err := s.loadedCorpus(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(corpus))
	copy(out, corpus)
	return out, nil
}

func (s *service) Entry(ctx context.Context, id int) (Entry, error) {
	corpus, err := s.loadedCorpus(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, entry := range corpus {
		if entry.ID == id {
			return entry, nil
		}
	}
	return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("faq entry %d not found", id), nil)
}

func (s *service) Rank(ctx context.Context, query string, k int) ([]ScoredEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "query cannot be empty", nil)
	}
	corpus, cache, err := s.state(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.TopMatches(ctx, query, corpus, cache, k)
}

func (s *service) Warm(ctx context.Context) (WarmResult, error) {
	corpus, cache, err := s.state(ctx)
	if err != nil {
		return WarmResult{}, err
	}
	return WarmResult{
		Entries:     len(corpus),
		Fingerprint: cache.Fingerprint,
		Model:       cache.Model,
		CreatedAt:   cache.CreatedAt,
	}, nil
}

func (s *service) Reload(ctx context.Context) (WarmResult, error) {
	s.mu.Lock()
	s.corpus = nil
	s.cache = nil
	s.mu.Unlock()
	return s.Warm(ctx)
}

// state lazily loads the corpus and its embeddings. Failures leave the
// service unloaded so the next call retries.
func (s *service) state(ctx context.Context) ([]Entry, EmbeddingCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corpus == nil {
		corpus, err := s.matcher.LoadCorpus(ctx)
		if err != nil {
			return nil, EmbeddingCache{}, err
		}
		s.corpus = corpus
	}
	if s.cache == nil {
		cache, err := s.matcher.EnsureEmbeddings(ctx, s.corpus)
		if err != nil {
			return nil, EmbeddingCache{}, err
		}
		s.cache = &cache
	}
	return s.corpus, *s.cache, nil
}

func (s *service) loadedCorpus(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corpus == nil {
		corpus, err := s.matcher.LoadCorpus(ctx)
		if err != nil {
			return nil, err
		}
		s.corpus = corpus
	}
	return s.corpus, nil
}

func (s *service) phrase(ctx context.Context, question string, related []ScoredEntry) (string, metrics.TokenUsage, error) {
	prompt := strings.TrimSpace(s.cfg.Prompt)
	if prompt == "" {
		prompt = "You are a helpful FAQ assistant. Answer from the provided entries."
	}
	messages := []chatgpt.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: buildPhrasingPrompt(question, related)},
	}
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   300,
	})
	if err != nil {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt returned no choices", nil)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt response empty", nil)
	}
	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return answer, usage, nil
}

func buildPhrasingPrompt(question string, related []ScoredEntry) string {
	var b strings.Builder
	b.WriteString("Related FAQ entries:\n\n")
	for i, item := range related {
		fmt.Fprintf(&b, "%d. QUESTION: %s\n   ANSWER: %s\n   (similarity: %.2f)\n\n", i+1, item.Entry.Question, item.Entry.Answer, item.Score)
	}
	fmt.Fprintf(&b, "USER QUESTION:\n%s\n\n", question)
	b.WriteString("Answer the user's question from the entries above in a natural, friendly way (2-4 sentences). If none of them relate to the question, say so honestly.")
	return b.String()
}

func confidenceFor(score float64) Confidence {
	if score > highConfidenceScore {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func toRelated(items []ScoredEntry) []RelatedEntry {
	out := make([]RelatedEntry, len(items))
	for i, item := range items {
		out[i] = RelatedEntry{ID: item.Entry.ID, Question: item.Entry.Question, Score: item.Score}
	}
	return out
}
