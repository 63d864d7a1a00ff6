package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

// HTTPError is the transport view of a failure: the status to send and the
// code and message of the JSON error envelope.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// codeStatus maps domain error codes onto response statuses. cache_io_error
// is absent on purpose: the matcher logs it and never returns it.
var codeStatus = map[string]int{
	apperrors.CodeInvalidInput:     http.StatusBadRequest,
	apperrors.CodeUnauthorized:     http.StatusUnauthorized,
	apperrors.CodeInvalidToken:     http.StatusForbidden,
	apperrors.CodeNotFound:         http.StatusNotFound,
	apperrors.CodeCorpusLoad:       http.StatusInternalServerError,
	apperrors.CodeEmbeddingService: http.StatusBadGateway,
	apperrors.CodeLLM:              http.StatusBadGateway,
	apperrors.CodeVision:           http.StatusBadGateway,
}

// domainError converts a service error. Known codes keep their name, except
// invalid_input which is reported as invalid_request like binding failures.
// Anything else becomes a 500 under fallback.
func domainError(err error, fallback string) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, fallback, errMessage(err), err)
	}
	if code == apperrors.CodeInvalidInput {
		code = "invalid_request"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
