package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/campus/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	status, _ := classify(err)
	return status
}

// RespondError maps domain errors to HTTP responses using RFC7807. Internal
// failures never leak their detail to the client.
func RespondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	Problem(w, ProblemDetail{Status: status, Detail: shared.UserSafeMessage(err), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrDuplicateUsername):
		return http.StatusConflict, "duplicate_username"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden, "csrf"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
