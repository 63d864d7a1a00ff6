package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
	"github.com/yanqian/photo-caption/pkg/metrics"
	"github.com/yanqian/photo-caption/pkg/util"
)

// Service turns an uploaded photo into a publishable caption and tags.
type Service interface {
	Analyze(ctx context.Context, req ImageRequest) (Result, error)
}

type service struct {
	cfg     Config
	vision  VisionAnalyzer
	web     WebDetector
	safety  SafetyChecker
	client  ChatClient
	archive Archive
	logger  *slog.Logger
	now     func() time.Time
	newID   func(time.Time) string
}

// Deps groups the collaborators of the pipeline. Web, Safety and Archive are
// optional and may be nil.
type Deps struct {
	Vision  VisionAnalyzer
	Web     WebDetector
	Safety  SafetyChecker
	Client  ChatClient
	Archive Archive
}

// NewService wires up the caption domain.
func NewService(cfg Config, deps Deps, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg.withDefaults(),
		vision:  deps.Vision,
		web:     deps.Web,
		safety:  deps.Safety,
		client:  deps.Client,
		archive: deps.Archive,
		logger:  logger.With("component", "caption.service"),
		now:     util.NowUTC,
		newID:   newAnalysisID,
	}
}

func (s *service) Analyze(ctx context.Context, req ImageRequest) (Result, error) {
	start := s.now()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	info, err := s.validateImage(req.Content)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		AnalysisID: s.newID(start),
		Image:      info,
		Warnings:   append([]string(nil), info.Warnings...),
	}

	userContext := strings.TrimSpace(req.UserContext)
	if n := utf8.RuneCountInString(userContext); n > s.cfg.MaxContextChars {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("context is %d characters, %d or fewer is recommended", n, s.cfg.MaxContextChars))
	}
	result.ContextUsed = userContext

	vision, web, safety, err := s.gather(ctx, req.Content)
	if err != nil {
		return Result{}, err
	}
	result.Vision = vision
	result.Web = web
	result.Safety = safety

	out, raw, usage, err := s.generate(ctx, vision, web, safety, userContext)
	if err != nil {
		return Result{}, err
	}
	if raw != "" {
		result.Raw = raw
		result.Warnings = append(result.Warnings, "model reply was not valid JSON")
	} else {
		result.Caption = out.Caption
		result.Tags = out.Tags
		if len(out.Tags) < s.cfg.MinTags {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("model returned %d tags, expected at least %d", len(out.Tags), s.cfg.MinTags))
		}
	}
	result.TokenUsage = usage.Ptr()
	result.DurationMs = s.now().Sub(start).Milliseconds()

	s.record(ctx, req, result)
	s.logger.Info("caption generated",
		"analysisId", result.AnalysisID,
		"format", info.Format,
		"webContext", web != nil && web.Error == "",
		"safe", safety == nil || safety.Safe,
		"durationMs", result.DurationMs,
	)
	return result, nil
}

// gather calls the vendor APIs concurrently. Only the vision call is
// required; web and safety failures are reported inside their results.
func (s *service) gather(ctx context.Context, image []byte) (VisionSummary, *WebContext, *SafetyReport, error) {
	var (
		vision VisionSummary
		web    *WebContext
		safety *SafetyReport
	)
	if s.vision == nil {
		return VisionSummary{}, nil, nil, apperrors.Wrap(apperrors.CodeVision, "image analysis is not configured", nil)
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.vision.Analyze(gctx, image)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeVision, "image analysis failed", err)
		}
		summary.Landmarks = landmarkTags(summary.Tags)
		vision = summary
		return nil
	})

	if s.web != nil {
		g.Go(func() error {
			raw, err := s.web.Detect(gctx, image)
			if err != nil {
				s.logger.Warn("web detection failed", "error", err)
				web = &WebContext{Error: err.Error()}
				return nil
			}
			summary := summarizeWeb(raw)
			web = &summary
			return nil
		})
	}

	if s.safety != nil {
		g.Go(func() error {
			categories, err := s.safety.Check(gctx, image)
			if err != nil {
				s.logger.Warn("safety check failed, treating image as safe", "error", err)
				safety = &SafetyReport{Safe: true, Error: err.Error()}
				return nil
			}
			report := evaluateSafety(categories, s.cfg.SafetyThresholds)
			safety = &report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return VisionSummary{}, nil, nil, err
	}
	return vision, web, safety, nil
}

func (s *service) generate(ctx context.Context, vision VisionSummary, web *WebContext, safety *SafetyReport, userContext string) (modelOutput, string, metrics.TokenUsage, error) {
	userPrompt, err := s.buildUserPrompt(vision, web, safety, userContext)
	if err != nil {
		return modelOutput{}, "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "build caption prompt", err)
	}
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.buildSystemPrompt()},
			{Role: "user", Content: userPrompt},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return modelOutput{}, "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "caption generation timed out", err)
		}
		return modelOutput{}, "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt request failed", err)
	}
	if len(resp.Choices) == 0 {
		return modelOutput{}, "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt returned no choices", nil)
	}
	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return modelOutput{}, "", usage, apperrors.Wrap(apperrors.CodeLLM, "chatgpt response empty", nil)
	}
	out, ok := parseModelOutput(text, s.cfg.MaxTags)
	if !ok {
		s.logger.Warn("caption reply is not valid json, returning raw text")
		return modelOutput{}, text, usage, nil
	}
	return out, "", usage, nil
}

func landmarkTags(tags []Tag) []Tag {
	var out []Tag
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag.Name), "landmark") {
			out = append(out, tag)
		}
	}
	return out
}
