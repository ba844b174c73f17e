package rest

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/application/session"
	"github.com/smilemakc/atelier/internal/infrastructure/storage"
)

// APIError is the envelope for infrastructure-level failures. Domain
// rejections (collision, unknown task) are NOT APIErrors: they are
// expected user outcomes rendered as HTTP 200 {success:false} by the
// edit handlers.
type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func NewAPIErrorWithDetails(code, message string, httpStatus int, details map[string]interface{}) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		HTTPStatus: httpStatus,
	}
}

var (
	ErrBadRequest       = NewAPIError("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrNotFound         = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternalServer   = NewAPIError("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrTooManyRequests  = NewAPIError("RATE_LIMIT_EXCEEDED", "Too many requests", http.StatusTooManyRequests)
	ErrInvalidJSON      = NewAPIError("INVALID_JSON", "Invalid JSON in request body", http.StatusBadRequest)
	ErrMissingParameter = NewAPIError("MISSING_PARAMETER", "Required parameter is missing", http.StatusBadRequest)
	ErrInvalidID        = NewAPIError("INVALID_ID", "Invalid ID format", http.StatusBadRequest)
)

// TranslateError maps application errors onto API errors.
func TranslateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, storage.ErrDatabaseUnknown):
		return NewAPIError("DATABASE_UNKNOWN", "Unknown database", http.StatusNotFound)
	case errors.Is(err, storage.ErrPlanningNotFound):
		return NewAPIError("PLANNING_NOT_FOUND", "Planning not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrProductionNotFound):
		return NewAPIError("PRODUCTION_NOT_FOUND", "Production not found", http.StatusNotFound)
	case errors.Is(err, planner.ErrNoPlanningSelected):
		return NewAPIError("NO_PLANNING_SELECTED", "No planning selected", http.StatusBadRequest)

	case errors.Is(err, session.ErrExpiredToken):
		return NewAPIError("SESSION_EXPIRED", "Session has expired", http.StatusUnauthorized)
	case errors.Is(err, session.ErrInvalidToken):
		return NewAPIError("INVALID_SESSION", "Invalid session", http.StatusUnauthorized)

	// Database-level not found (when a repository doesn't wrap sql.ErrNoRows)
	case errors.Is(err, sql.ErrNoRows):
		return NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	}

	// String-pattern fallback for errors crossing package boundaries
	// without a sentinel.
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "no rows") || strings.Contains(errMsg, "not found") {
		return NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	}

	return NewAPIError("INTERNAL_ERROR", "An unexpected error occurred", http.StatusInternalServerError)
}
