package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/photo-caption/internal/domain/auth"
)

// Login exchanges reviewer credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err, "login_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAnalyses returns the most recent stored analyses.
func (h *Handler) ListAnalyses(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be an integer", err))
			return
		}
		limit = parsed
	}
	items, err := h.reviewSvc.List(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, domainError(err, "review_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// GetAnalysis returns one stored analysis record.
func (h *Handler) GetAnalysis(c *gin.Context) {
	record, err := h.reviewSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, domainError(err, "review_failed"))
		return
	}
	if claims, ok := reviewerFrom(c); ok {
		h.logger.Info("analysis viewed", "analysis_id", record.AnalysisID, "reviewer", claims.Username)
	}
	c.JSON(http.StatusOK, record)
}

// AnalysisStats summarises stored images and results.
func (h *Handler) AnalysisStats(c *gin.Context) {
	stats, err := h.reviewSvc.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err, "review_failed"))
		return
	}
	c.JSON(http.StatusOK, stats)
}
