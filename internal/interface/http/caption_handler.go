package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/photo-caption/internal/domain/caption"
)

const multipartOverhead = 1 << 20

// CreateCaption accepts a multipart upload with an `image` file and an
// optional `context` field and runs the caption pipeline on it.
func (h *Handler) CreateCaption(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_request", "upload too large", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "image is required", err))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_request",
			fmt.Sprintf("file too large: max %d MB", h.maxUploadBytes>>20), nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "caption_failed", "failed to read file", err))
		return
	}

	result, err := h.captionSvc.Analyze(c.Request.Context(), caption.ImageRequest{
		Filename:    fileHeader.Filename,
		Content:     data,
		UserContext: strings.TrimSpace(c.PostForm("context")),
	})
	if err != nil {
		abortWithError(c, domainError(err, "caption_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}
