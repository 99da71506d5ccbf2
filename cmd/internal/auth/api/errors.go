package authapi

import (
	"errors"
	"net/http"

	"carepass/cmd/internal/auth/session"
)

const (
	msgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
)

// statusFor maps a session error to its HTTP status and client message.
// Unknown errors become a bare 500; their cause is only logged.
func statusFor(err error) (int, string) {
	if ve, ok := session.IsValidation(err); ok {
		return http.StatusBadRequest, ve.Message
	}
	switch {
	case errors.Is(err, session.ErrDuplicateEmail):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, session.ErrDuplicateMobile):
		return http.StatusConflict, "Mobile number already registered"
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, session.ErrAccountDeactivated):
		return http.StatusForbidden, "Account is deactivated"
	case errors.Is(err, session.ErrTokenMissing):
		return http.StatusUnauthorized, "Authorization token is missing"
	case errors.Is(err, session.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, session.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, session.ErrTokenRevoked):
		return http.StatusUnauthorized, "Token has been revoked"
	case errors.Is(err, session.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Customer not found"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// outcome is the low-cardinality metric label for err.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if _, ok := session.IsValidation(err); ok {
		return "validation"
	}
	switch {
	case errors.Is(err, session.ErrDuplicateEmail), errors.Is(err, session.ErrDuplicateMobile):
		return "duplicate"
	case errors.Is(err, session.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, session.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, session.ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, session.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, session.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, session.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
