// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/fundshare/fundshare/internal/shared"
)

// StatusFor returns the HTTP status for a domain error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrDuplicateRequest),
		errors.Is(err, shared.ErrDuplicateGrant):
		return http.StatusConflict
	case errors.Is(err, shared.ErrEvaluationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// The detail never carries the wrapped internal cause.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	Problem(w, status, http.StatusText(status), shared.UserSafeMessage(err))
}
