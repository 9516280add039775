package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps form field names to user-facing messages. It unwraps to
// ErrValidation so callers can test for it with errors.Is.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fe[k])
	}
	return strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// FieldErrorsFrom converts validator output into FieldErrors. Errors that do
// not come from the validator are wrapped as a general validation failure.
func FieldErrorsFrom(err error) FieldErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"general": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fieldErr := range verrs {
		out[fieldErr.Field()] = describe(fieldErr)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
