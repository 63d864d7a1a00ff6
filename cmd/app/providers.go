package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/yanqian/photo-caption/internal/domain/auth"
	"github.com/yanqian/photo-caption/internal/domain/caption"
	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/infra/config"
	"github.com/yanqian/photo-caption/internal/infra/embedder"
	"github.com/yanqian/photo-caption/internal/infra/embeddingcache"
	"github.com/yanqian/photo-caption/internal/infra/faqcorpus"
	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	"github.com/yanqian/photo-caption/internal/infra/objectstore"
	safetyazure "github.com/yanqian/photo-caption/internal/infra/safety/azure"
	visionazure "github.com/yanqian/photo-caption/internal/infra/vision/azure"
	"github.com/yanqian/photo-caption/internal/infra/webdetect/gcv"
)

func provideFileSystem() afero.Fs {
	return afero.NewOsFs()
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, chatgpt.Options{
		APIVersion:          cfg.LLM.APIVersion,
		EmbeddingAPIVersion: cfg.LLM.EmbeddingAPIVersion,
		Timeout:             cfg.LLM.Timeout,
	})
}

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		Model:               cfg.LLM.Model,
		EmbeddingModel:      cfg.LLM.EmbeddingModel,
		Temperature:         cfg.LLM.Temperature,
		Prompt:              cfg.FAQ.Prompt,
		FallbackAnswer:      cfg.FAQ.FallbackAnswer,
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
		TopK:                cfg.FAQ.TopK,
		GenerateAnswer:      cfg.FAQ.GenerateAnswer,
	}
}

func provideCorpusSource(cfg *config.Config, fs afero.Fs) faq.CorpusSource {
	return faqcorpus.NewFileSource(fs, cfg.FAQ.CorpusPath)
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) faq.Embedder {
	return embedder.NewOpenAIEmbedder(client, cfg.LLM.EmbeddingModel, logger)
}

func provideMatcher(cfg *config.Config, source faq.CorpusSource, store faq.CacheStore, emb faq.Embedder, logger *slog.Logger) *faq.Matcher {
	return faq.NewMatcher(source, store, emb, cfg.LLM.EmbeddingModel, logger)
}

func provideCacheStore(cfg *config.Config, fs afero.Fs, logger *slog.Logger) faq.CacheStore {
	return embeddingcache.Open(context.Background(), cfg.FAQ.Cache, fs, logger)
}

func provideCaptionConfig(cfg *config.Config) caption.Config {
	model := cfg.Caption.Model
	if model == "" {
		model = cfg.LLM.Model
	}
	return caption.Config{
		Language:             cfg.Caption.Language,
		Model:                model,
		Temperature:          cfg.Caption.Temperature,
		MaxTokens:            cfg.Caption.MaxTokens,
		MaxFileBytes:         int64(cfg.Caption.MaxFileMB) << 20,
		MinDimension:         cfg.Caption.MinDimension,
		MaxDimension:         cfg.Caption.MaxDimension,
		RecommendedDimension: cfg.Caption.RecommendedDimension,
		MaxContextChars:      cfg.Caption.MaxContextChars,
		MinTags:              cfg.Caption.MinTags,
		MaxTags:              cfg.Caption.MaxTags,
		SafetyThresholds:     cfg.Safety.Thresholds,
		Timeout:              cfg.Caption.Timeout,
	}
}

// provideCaptionDeps assembles the vendor adapters. Optional collaborators
// that are disabled or misconfigured stay nil and are skipped by the pipeline.
func provideCaptionDeps(cfg *config.Config, client *chatgpt.Client, store objectstore.Store, logger *slog.Logger) caption.Deps {
	deps := caption.Deps{Client: client, Archive: store}

	if strings.TrimSpace(cfg.Vision.Endpoint) == "" {
		logger.Warn("vision endpoint not configured, caption requests will fail")
	} else if vision, err := visionazure.NewClient(cfg.Vision.Endpoint, cfg.Vision.APIKey, cfg.Vision.APIVersion, cfg.Vision.Features, cfg.Caption.Timeout); err != nil {
		logger.Error("vision client init failed", "error", err)
	} else {
		deps.Vision = vision
	}

	if cfg.WebDetection.Enabled {
		web, err := gcv.NewClient(context.Background(), gcv.Options{
			APIKey:          cfg.WebDetection.APIKey,
			CredentialsFile: cfg.WebDetection.CredentialsFile,
			MaxResults:      cfg.WebDetection.MaxResults,
		})
		if err != nil {
			logger.Error("web detection disabled", "error", err)
		} else {
			deps.Web = web
		}
	}

	if cfg.Safety.Enabled {
		if safety, err := provideSafetyChecker(cfg); err != nil {
			logger.Error("content safety disabled", "provider", cfg.Safety.Provider, "error", err)
		} else {
			deps.Safety = safety
		}
	}
	return deps
}

func provideSafetyChecker(cfg *config.Config) (caption.SafetyChecker, error) {
	if cfg.Safety.Provider == config.SafetyProviderGCV {
		return gcv.NewSafeSearch(context.Background(), gcv.Options{
			APIKey:          cfg.WebDetection.APIKey,
			CredentialsFile: cfg.WebDetection.CredentialsFile,
		})
	}
	return safetyazure.NewClient(cfg.Safety.Endpoint, cfg.Safety.APIKey, cfg.Safety.APIVersion, cfg.Caption.Timeout)
}

// provideObjectStore returns the S3-compatible archive, or an in-memory one
// when storage is disabled or unreachable.
func provideObjectStore(cfg *config.Config, logger *slog.Logger) objectstore.Store {
	if !cfg.Storage.Enabled {
		logger.Info("object storage disabled, analyses kept in memory")
		return objectstore.NewMemoryStore()
	}
	store, err := objectstore.NewS3Store(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.Region, logger)
	if err != nil {
		logger.Error("object storage init failed, analyses kept in memory", "error", err)
		return objectstore.NewMemoryStore()
	}
	logger.Info("object storage enabled", "bucket", cfg.Storage.Bucket)
	return store
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:       cfg.Auth.Secret,
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		TokenTTL:     cfg.Auth.TokenTTL,
	}
}
