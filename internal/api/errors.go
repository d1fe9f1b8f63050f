package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facturas/internal/pipeline"
	"facturas/internal/tax"
)

// ErrInvalidRequest marks a request body that could not be bound.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorPayload is the body of every error response.
type ErrorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorResponse struct {
	Error ErrorPayload `json:"error"`
}

// RequestError carries details to report alongside a mapped error.
type RequestError struct {
	Err     error
	Details []string
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// ErrorHandler renders the last error attached with AbortWithError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			reqLog := requestLogger(c)
			reqLog.Error().Err(lastErr.Err).Int("status", status).Msg("Request failed")
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for ErrorHandler and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, ErrorPayload) {
	payload := ErrorPayload{Message: err.Error()}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		payload.Details = reqErr.Details
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		payload.Code = "invalid_request"
		return http.StatusBadRequest, payload
	case errors.Is(err, pipeline.ErrValidationFailed):
		payload.Code = "validation_failed"
		payload.Message = pipeline.ErrValidationFailed.Error()
		return http.StatusUnprocessableEntity, payload
	case errors.Is(err, tax.ErrNegativeTax):
		payload.Code = "negative_tax"
		return http.StatusInternalServerError, payload
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		payload.Code = "canceled"
		return http.StatusServiceUnavailable, payload
	default:
		payload.Code = "internal_error"
		payload.Message = "internal server error"
		return http.StatusInternalServerError, payload
	}
}
