package session

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"carepass/cmd/internal/ids"
)

// jwtClaims is the wire form: registered claims plus the type discriminator.
type jwtClaims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// JWTIssuer implements TokenIssuer with HS256-signed JWTs.
type JWTIssuer struct {
	issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clockSkew  time.Duration
	maxBytes   int
}

// NewJWTIssuer builds a JWTIssuer from cfg. The config must already be valid.
func NewJWTIssuer(cfg Config) (*JWTIssuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	secret := make([]byte, len(cfg.JWTSecret))
	copy(secret, cfg.JWTSecret)

	return &JWTIssuer{
		issuer:     cfg.Issuer,
		secret:     secret,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		clockSkew:  cfg.ClockSkew,
		maxBytes:   cfg.MaxTokenBytes,
	}, nil
}

func (m *JWTIssuer) ttl(typ TokenType) (time.Duration, bool) {
	switch typ {
	case TokenAccess:
		return m.accessTTL, true
	case TokenRefresh:
		return m.refreshTTL, true
	default:
		return 0, false
	}
}

// Issue signs a new token of type typ for customerID.
func (m *JWTIssuer) Issue(customerID int64, typ TokenType, now time.Time) (Token, error) {
	ttl, ok := m.ttl(typ)
	if !ok {
		return Token{}, errors.New("session: unknown token type")
	}
	if customerID <= 0 {
		return Token{}, errors.New("session: invalid customer id")
	}
	if now.IsZero() {
		now = time.Now()
	}

	jti, err := ids.NewULID(now)
	if err != nil {
		return Token{}, err
	}

	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(ttl))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(customerID, 10),
			IssuedAt:  iat,
			ExpiresAt: exp,
			ID:        jti,
		},
	})

	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return Token{}, err
	}

	return Token{
		Value:     signed,
		ID:        jti,
		Type:      typ,
		IssuedAt:  iat.Time.UTC(),
		ExpiresAt: exp.Time.UTC(),
	}, nil
}

// Verify parses raw and checks signature, issuer, expiry and type.
func (m *JWTIssuer) Verify(raw string, expected TokenType, now time.Time) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrTokenMissing
	}
	if len(raw) > m.maxBytes {
		return Claims{}, ErrTokenInvalid
	}
	if now.IsZero() {
		now = time.Now()
	}

	claims := &jwtClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid || claims.Type != expected {
		return Claims{}, ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Claims{}, ErrTokenInvalid
	}

	out := Claims{
		CustomerID: id,
		TokenID:    claims.ID,
		Type:       claims.Type,
		Issuer:     claims.Issuer,
		ExpiresAt:  claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}
