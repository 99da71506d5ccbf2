package authapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"carepass/cmd/internal/auth/session"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
		wantLabel  string
	}{
		{session.ErrDuplicateEmail, http.StatusConflict, "Email already registered", "duplicate"},
		{session.ErrDuplicateMobile, http.StatusConflict, "Mobile number already registered", "duplicate"},
		{session.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password", "invalid_credentials"},
		{session.ErrAccountDeactivated, http.StatusForbidden, "Account is deactivated", "deactivated"},
		{session.ErrTokenMissing, http.StatusUnauthorized, "Authorization token is missing", "token_missing"},
		{session.ErrTokenExpired, http.StatusUnauthorized, "Token has expired", "token_expired"},
		{fmt.Errorf("verify: %w", session.ErrTokenInvalid), http.StatusUnauthorized, "Invalid token", "token_invalid"},
		{session.ErrTokenRevoked, http.StatusUnauthorized, "Token has been revoked", "token_revoked"},
		{session.ErrNotFound, http.StatusNotFound, "Customer not found", "not_found"},
		{errors.New("connection refused"), http.StatusInternalServerError, msgInternal, "error"},
	}

	for _, tc := range tests {
		t.Run(tc.wantLabel+"/"+tc.err.Error(), func(t *testing.T) {
			status, msg := statusFor(tc.err)
			if status != tc.wantStatus || msg != tc.wantMsg {
				t.Fatalf("statusFor(%v) = %d %q, want %d %q", tc.err, status, msg, tc.wantStatus, tc.wantMsg)
			}
			if got := outcome(tc.err); got != tc.wantLabel {
				t.Fatalf("outcome(%v) = %q, want %q", tc.err, got, tc.wantLabel)
			}
		})
	}

	if got := outcome(nil); got != "success" {
		t.Fatalf("outcome(nil) = %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"Basic dXNlcjpw": "",
		"Bearer":         "",
		"Token abc":      "",
	}
	for header, want := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := bearerToken(r); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
