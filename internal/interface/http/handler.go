package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/photo-caption/internal/domain/auth"
	"github.com/yanqian/photo-caption/internal/domain/caption"
	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/domain/review"
	"github.com/yanqian/photo-caption/internal/infra/config"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	faqSvc     faq.Service
	captionSvc caption.Service
	reviewSvc  review.Service
	authSvc    auth.Service
	logger     *slog.Logger

	maxUploadBytes int64
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, faqSvc faq.Service, captionSvc caption.Service, reviewSvc review.Service, authSvc auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:         faqSvc,
		captionSvc:     captionSvc,
		reviewSvc:      reviewSvc,
		authSvc:        authSvc,
		logger:         logger.With("component", "http.handler"),
		maxUploadBytes: int64(cfg.Caption.MaxFileMB) << 20,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AnswerFAQ matches a free-text question against the FAQ corpus.
func (h *Handler) AnswerFAQ(c *gin.Context) {
	var req faq.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.faqSvc.Answer(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err, "faq_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListFAQ returns the whole corpus.
func (h *Handler) ListFAQ(c *gin.Context) {
	items, err := h.faqSvc.Entries(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// GetFAQ returns one corpus entry by id.
func (h *Handler) GetFAQ(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "id must be a positive integer", err))
		return
	}
	entry, err := h.faqSvc.Entry(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, domainError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, entry)
}
