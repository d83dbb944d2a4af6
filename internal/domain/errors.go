package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by services and the HTTP layer. Services return
// these (possibly wrapped); handlers map them to status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
	// ErrUpstream marks a payment-gateway failure or timeout. The lease is
	// left pending for the stale-hold reaper rather than silently lost.
	ErrUpstream = errors.New("upstream service failure")
)

// ValidationError carries a caller-facing message for malformed input or a
// violated business rule. No state is mutated when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
