package session

import (
	"errors"
	"fmt"
)

// Business errors. Callers map these to transport responses; anything else is
// an unexpected failure.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateMobile    = errors.New("mobile number already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account is deactivated")

	ErrTokenMissing = errors.New("authorization token is missing")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")

	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("customer not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Ledger-level errors.
var (
	// ErrLedgerEntryNotFound is returned when no ledger row matches a token digest.
	ErrLedgerEntryNotFound = errors.New("refresh token not recorded")

	// ErrRefreshReuseDetected is returned by Ledger.Rotate when an already
	// rotated token is presented again. All of the customer's tokens have been
	// revoked by the time it is returned.
	ErrRefreshReuseDetected = errors.New("refresh token reuse detected")
)

// ValidationError reports malformed client input. Message is safe to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (ValidationError, bool) {
	var ve ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func invalidField(field, msg string) error {
	return ValidationError{Field: field, Message: msg}
}
