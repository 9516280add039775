package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUnauthenticated indicates the caller has no session principal.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the principal's role does not allow the action.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable indicates the data store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into text that can be shown on a page.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrDuplicateUsername):
		return "Username already exists"
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in first"
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "Course not found"
	case errors.Is(err, ErrStoreUnavailable):
		return "Service temporarily unavailable, please try again"
	default:
		return "Something went wrong"
	}
}
