package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carepass/cmd/customer"
	"carepass/cmd/security/token"
)

// PasswordHasher hashes and verifies passwords. needsRehash is reported for
// matching passwords whose stored hash should be upgraded. DummyHash must not
// depend on the password policy.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(encoded, plain string) (ok bool, needsRehash bool, err error)
	DummyHash() (string, error)
}

// Service implements the customer session state machine.
//
// It is safe for concurrent use; all shared state lives in the store and ledger.
type Service struct {
	cfg       Config
	customers customer.Store
	ledger    Ledger
	tokens    TokenIssuer
	hasher    PasswordHasher
	digest    token.RefreshHasher

	log    *slog.Logger
	tracer trace.Tracer

	minPassword int
	maxPassword int

	// dummyHash is verified when an email is unknown so that response timing
	// does not reveal which emails are registered.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRefreshHasher sets the ledger digest mode (default plain SHA-256).
func WithRefreshHasher(h token.RefreshHasher) Option {
	return func(s *Service) { s.digest = h }
}

// WithPasswordLengths overrides the accepted password length range.
// The minimum never drops below MinPasswordLength.
func WithPasswordLengths(minLen, maxLen int) Option {
	return func(s *Service) {
		if minLen > MinPasswordLength {
			s.minPassword = minLen
		}
		if maxLen > 0 {
			s.maxPassword = maxLen
		}
	}
}

// NewService wires a Service from explicit dependencies.
func NewService(cfg Config, customers customer.Store, ledger Ledger, tokens TokenIssuer, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if customers == nil || ledger == nil || tokens == nil || hasher == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrConfig)
	}

	s := &Service{
		cfg:         cfg,
		customers:   customers,
		ledger:      ledger,
		tokens:      tokens,
		hasher:      hasher,
		digest:      token.NewRefreshHasher(nil),
		log:         slog.Default(),
		tracer:      otel.Tracer("carepass/session"),
		minPassword: MinPasswordLength,
		maxPassword: 256,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.maxPassword < s.minPassword {
		return nil, fmt.Errorf("%w: password max length below min length", ErrConfig)
	}

	dummy, err := hasher.DummyHash()
	if err != nil {
		return nil, fmt.Errorf("session: dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// SignupInput is a registration request. Optional profile fields may be nil.
type SignupInput struct {
	Email        string
	MobileNumber string
	Password     string
	FirstName    string
	LastName     string
	DateOfBirth  *string
	Address      *string
	City         *string
	State        *string
	PostalCode   *string
}

// SignupResult carries the new customer. Tokens is nil when issuance failed
// after the account was created; the account itself is valid.
type SignupResult struct {
	Customer customer.Customer
	Tokens   *TokenPair
}

// LoginResult carries the authenticated customer and fresh tokens.
type LoginResult struct {
	Customer customer.Customer
	Tokens   TokenPair
}

// RefreshResult carries the new access token, and a new refresh token when
// rotation is enabled.
type RefreshResult struct {
	Access  Token
	Refresh *Token
}

// ProfileInput is the allow-listed profile patch. Nil leaves a field unchanged.
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *string
	Address     *string
	City        *string
	State       *string
	PostalCode  *string
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// AuthenticateAccess verifies an access token and returns its claims.
func (s *Service) AuthenticateAccess(raw string, now time.Time) (Claims, error) {
	return s.tokens.Verify(raw, TokenAccess, now)
}

// issueTokens issues an access/refresh pair and records the refresh token.
func (s *Service) issueTokens(ctx context.Context, customerID int64, now time.Time) (TokenPair, error) {
	access, err := s.tokens.Issue(customerID, TokenAccess, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(customerID, TokenRefresh, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.ledger.Record(ctx, s.entryFor(customerID, refresh, now)); err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Service) entryFor(customerID int64, refresh Token, now time.Time) LedgerEntry {
	return LedgerEntry{
		ID:         refresh.ID,
		CustomerID: customerID,
		TokenHash:  s.digest.Hash(refresh.Value),
		ExpiresAt:  refresh.ExpiresAt,
		CreatedAt:  now,
	}
}

// mapStoreErr translates customer store errors into the session taxonomy.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case customer.IsNotFound(err):
		return ErrNotFound
	case customer.IsConflict(err):
		field, _ := customer.ConflictField(err)
		if field == customer.FieldMobile {
			return ErrDuplicateMobile
		}
		return ErrDuplicateEmail
	default:
		return err
	}
}

// IsBusinessError reports whether err is an expected outcome rather than a failure.
func IsBusinessError(err error) bool {
	if _, ok := IsValidation(err); ok {
		return true
	}
	for _, target := range []error{
		ErrDuplicateEmail, ErrDuplicateMobile, ErrInvalidCredentials, ErrAccountDeactivated,
		ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid, ErrTokenRevoked,
		ErrUnauthorized, ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

// finish ends span, marking it failed only for unexpected errors.
func finish(span trace.Span, err error) {
	if err != nil && !IsBusinessError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected error")
	}
	span.End()
}
