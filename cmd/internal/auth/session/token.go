package session

import "time"

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Token is an issued bearer credential.
type Token struct {
	Value     string
	ID        string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the verified content of a token.
type Claims struct {
	CustomerID int64
	TokenID    string
	Type       TokenType
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Issuer     string
}

// TokenIssuer issues and verifies signed, stateless tokens.
//
// Verify fails with ErrTokenMissing for an empty token, ErrTokenExpired when
// now >= exp, and ErrTokenInvalid for anything else (signature, structure,
// issuer, type mismatch).
type TokenIssuer interface {
	Issue(customerID int64, typ TokenType, now time.Time) (Token, error)
	Verify(raw string, expected TokenType, now time.Time) (Claims, error)
}
