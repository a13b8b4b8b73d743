package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-portal-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the JSON error body and records err on the context
// so the request logger can report it. Internal errors are not echoed.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	resp := errorResponse{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	if status == http.StatusInternalServerError {
		resp = errorResponse{Error: "internal server error"}
	}
	c.AbortWithStatusJSON(status, resp)
}
