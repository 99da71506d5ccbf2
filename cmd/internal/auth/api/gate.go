package authapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"carepass/cmd/internal/auth/session"
)

// Authenticator verifies access tokens.
type Authenticator interface {
	AuthenticateAccess(raw string, now time.Time) (session.Claims, error)
}

type ctxKey struct{}

// CustomerIDFrom returns the customer id stored by Gate.
func CustomerIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id > 0
}

func withCustomerID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Gate rejects requests without a valid access token before they reach a
// handler. Missing, expired and invalid tokens share status 401 with
// distinct messages.
func Gate(auth Authenticator, now func() time.Time, onReject func(r *http.Request, err error)) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.AuthenticateAccess(bearerToken(r), now().UTC())
			if err != nil {
				if onReject != nil {
					onReject(r, err)
				}
				status, msg := statusFor(err)
				writeError(w, status, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCustomerID(r.Context(), claims.CustomerID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
