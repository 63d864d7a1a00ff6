//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/photo-caption/internal/bootstrap"
	"github.com/yanqian/photo-caption/internal/domain/auth"
	"github.com/yanqian/photo-caption/internal/domain/caption"
	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/domain/review"
	"github.com/yanqian/photo-caption/internal/infra/config"
	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	"github.com/yanqian/photo-caption/internal/infra/objectstore"
	httpiface "github.com/yanqian/photo-caption/internal/interface/http"
	"github.com/yanqian/photo-caption/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFileSystem,
		provideChatGPTClient,
		provideFAQConfig,
		provideCorpusSource,
		provideEmbedder,
		provideCacheStore,
		provideMatcher,
		provideCaptionConfig,
		provideObjectStore,
		provideCaptionDeps,
		provideAuthConfig,
		faq.NewService,
		caption.NewService,
		review.NewService,
		auth.NewService,
		wire.Bind(new(faq.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(review.ObjectReader), new(objectstore.Store)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
