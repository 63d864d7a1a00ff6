package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yanqian/photo-caption/internal/infra/config"
	"github.com/yanqian/photo-caption/pkg/util"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.POST("/faq/answer", handler.AnswerFAQ)
		api.GET("/faq", handler.ListFAQ)
		api.GET("/faq/:id", handler.GetFAQ)
		api.POST("/captions", handler.CreateCaption)
	}

	if strings.TrimSpace(cfg.Auth.Secret) != "" {
		api.POST("/auth/login", handler.Login)

		reviewGroup := api.Group("/review")
		reviewGroup.Use(authMiddleware(handler.authSvc))
		{
			reviewGroup.GET("/analyses", handler.ListAnalyses)
			reviewGroup.GET("/analyses/:id", handler.GetAnalysis)
			reviewGroup.GET("/stats", handler.AnalysisStats)
		}
	} else {
		handler.logger.Warn("auth secret not configured, review endpoints disabled")
	}

	var root http.Handler = withRetry(router, cfg.HTTP.Retry, handler.logger)
	root = otelhttp.NewHandler(root, "photo-caption")

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        root,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", util.MillisSince(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}
