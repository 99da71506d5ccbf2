package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mustIssuer(t *testing.T, mutate func(*Config)) *JWTIssuer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewJWTIssuer(cfg)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	return m
}

func TestJWTIssuer_IssueVerify(t *testing.T) {
	m := mustIssuer(t, nil)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := m.Issue(42, TokenAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.ID == "" || tok.Value == "" {
		t.Fatalf("empty token fields: %+v", tok)
	}
	if !tok.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("access expiry = %v, want %v", tok.ExpiresAt, now.Add(time.Hour))
	}

	c, err := m.Verify(tok.Value, TokenAccess, now.Add(59*time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.CustomerID != 42 || c.Type != TokenAccess || c.TokenID != tok.ID || c.Issuer != "carepass" {
		t.Fatalf("unexpected claims: %+v", c)
	}

	refresh, err := m.Issue(42, TokenRefresh, now)
	if err != nil {
		t.Fatalf("Issue refresh: %v", err)
	}
	if !refresh.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("refresh expiry = %v", refresh.ExpiresAt)
	}
}

func TestJWTIssuer_VerifyErrors(t *testing.T) {
	m := mustIssuer(t, nil)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	access, err := m.Issue(7, TokenAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := mustIssuer(t, func(c *Config) { c.JWTSecret = strings.Repeat("z", 32) })
	foreign, err := other.Issue(7, TokenAccess, now)
	if err != nil {
		t.Fatalf("Issue foreign: %v", err)
	}

	wrongIss := mustIssuer(t, func(c *Config) { c.Issuer = "someone-else" })
	otherIss, err := wrongIss.Issue(7, TokenAccess, now)
	if err != nil {
		t.Fatalf("Issue other issuer: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "carepass",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "carepass",
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	badSubjectRaw, err := badSubject.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign bad subject: %v", err)
	}

	tests := []struct {
		name     string
		raw      string
		expected TokenType
		at       time.Time
		want     error
	}{
		{"empty", "", TokenAccess, now, ErrTokenMissing},
		{"blank", "   ", TokenAccess, now, ErrTokenMissing},
		{"garbage", "abc", TokenAccess, now, ErrTokenInvalid},
		{"type mismatch", access.Value, TokenRefresh, now, ErrTokenInvalid},
		{"expired at exp", access.Value, TokenAccess, access.ExpiresAt, ErrTokenExpired},
		{"expired after exp", access.Value, TokenAccess, access.ExpiresAt.Add(time.Second), ErrTokenExpired},
		{"foreign secret", foreign.Value, TokenAccess, now, ErrTokenInvalid},
		{"wrong issuer", otherIss.Value, TokenAccess, now, ErrTokenInvalid},
		{"alg none", unsigned, TokenAccess, now, ErrTokenInvalid},
		{"non-numeric subject", badSubjectRaw, TokenAccess, now, ErrTokenInvalid},
		{"oversized", strings.Repeat("a", 5000), TokenAccess, now, ErrTokenInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Verify(tc.raw, tc.expected, tc.at)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Verify() err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestJWTIssuer_ClockSkew(t *testing.T) {
	m := mustIssuer(t, func(c *Config) { c.ClockSkew = 30 * time.Second })
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := m.Issue(1, TokenAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(tok.Value, TokenAccess, tok.ExpiresAt.Add(10*time.Second)); err != nil {
		t.Fatalf("expected leeway to accept, got %v", err)
	}
	if _, err := m.Verify(tok.Value, TokenAccess, tok.ExpiresAt.Add(time.Minute)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestJWTIssuer_IssueRejectsBadInput(t *testing.T) {
	m := mustIssuer(t, nil)
	if _, err := m.Issue(0, TokenAccess, time.Now()); err == nil {
		t.Fatalf("expected error for zero customer id")
	}
	if _, err := m.Issue(1, TokenType("session"), time.Now()); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestNewJWTIssuer_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "short"
	if _, err := NewJWTIssuer(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
