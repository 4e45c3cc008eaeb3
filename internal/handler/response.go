package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"louage/internal/middleware"
	"louage/internal/repository"
	"louage/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Partial trip cancellation - retryable, checked first since its causes vary
	case errors.Is(err, service.ErrCancellationIncomplete):
		return http.StatusServiceUnavailable

	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrAtomicityViolation),
		errors.Is(err, service.ErrAlreadyInTerminalState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidTripTransition),
		errors.Is(err, service.ErrTripNotOpen),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Lock contention - retryable
	case errors.Is(err, service.ErrTripBusy):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// authorizeUser rejects the request when auth is enabled and the token
// belongs to a different user. It reports whether the handler may continue.
func authorizeUser(c *gin.Context, userID string) bool {
	actor := middleware.UserID(c)
	if actor == "" || actor == userID {
		return true
	}
	c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	return false
}
