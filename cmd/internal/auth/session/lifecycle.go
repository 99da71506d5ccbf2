package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carepass/cmd/customer"
	"carepass/cmd/security/password"
)

// Signup validates and registers a new customer, then issues a token pair.
//
// Customer creation is atomic on its own. If issuing or recording tokens
// fails afterwards, the account is kept and the result carries nil Tokens.
func (s *Service) Signup(ctx context.Context, now time.Time, in SignupInput) (res SignupResult, err error) {
	ctx, span := s.start(ctx, "session.Signup")
	defer func() { finish(span, err) }()

	in, dob, err := s.validateSignup(in)
	if err != nil {
		return SignupResult{}, err
	}

	taken, err := s.customers.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return SignupResult{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return SignupResult{}, ErrDuplicateEmail
	}
	taken, err = s.customers.ExistsByMobile(ctx, in.MobileNumber)
	if err != nil {
		return SignupResult{}, fmt.Errorf("check mobile: %w", err)
	}
	if taken {
		return SignupResult{}, ErrDuplicateMobile
	}

	hash, err := s.hashPassword("password", "Password", in.Password)
	if err != nil {
		return SignupResult{}, err
	}

	c, err := s.customers.Create(ctx, customer.CreateInput{
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DateOfBirth:  dob,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Now:          now,
	})
	if err != nil {
		return SignupResult{}, mapStoreErr(err)
	}

	res.Customer = c
	pair, err := s.issueTokens(ctx, c.ID, now)
	if err != nil {
		s.log.ErrorContext(ctx, "auth.signup.tokens_failed", "customer_id", c.ID, "err", err)
		return res, nil
	}
	res.Tokens = &pair
	return res, nil
}

// Login verifies credentials and issues a token pair.
//
// Unknown email and wrong password fail identically. With HideDeactivated a
// deactivated account fails the same way too.
func (s *Service) Login(ctx context.Context, now time.Time, email, plain string) (res LoginResult, err error) {
	ctx, span := s.start(ctx, "session.Login")
	defer func() { finish(span, err) }()

	email, err = validateLogin(email, plain)
	if err != nil {
		return LoginResult{}, err
	}

	c, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		if customer.IsNotFound(err) {
			_, _, _ = s.hasher.Verify(s.dummyHash, plain)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find customer: %w", err)
	}

	ok, rehash, err := s.hasher.Verify(c.PasswordHash, plain)
	if err != nil {
		// Unreadable stored hash: the customer cannot log in until reset.
		s.log.WarnContext(ctx, "auth.login.bad_hash", "customer_id", c.ID, "err", err)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !c.IsActive {
		if s.cfg.HideDeactivated {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, ErrAccountDeactivated
	}

	if err := s.customers.RecordLogin(ctx, c.ID, now); err != nil {
		return LoginResult{}, mapStoreErr(err)
	}
	at := now.UTC()
	c.LastLogin = &at

	pair, err := s.issueTokens(ctx, c.ID, now)
	if err != nil {
		return LoginResult{}, err
	}

	if rehash {
		s.upgradeHash(ctx, now, c.ID, plain)
	}

	return LoginResult{Customer: c, Tokens: pair}, nil
}

// upgradeHash stores a fresh Argon2id hash. Failures are logged only.
func (s *Service) upgradeHash(ctx context.Context, now time.Time, customerID int64, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.log.InfoContext(ctx, "auth.login.rehash_skipped", "customer_id", customerID, "err", err)
		return
	}
	if err := s.customers.SetPassword(ctx, customerID, hash, now); err != nil {
		s.log.WarnContext(ctx, "auth.login.rehash_failed", "customer_id", customerID, "err", err)
		return
	}
	s.log.InfoContext(ctx, "auth.login.rehashed", "customer_id", customerID)
}

// RefreshAccessToken exchanges a ledger-tracked refresh token for a new
// access token. With rotation enabled the refresh token is replaced too.
func (s *Service) RefreshAccessToken(ctx context.Context, now time.Time, raw string) (res RefreshResult, err error) {
	ctx, span := s.start(ctx, "session.RefreshAccessToken")
	defer func() { finish(span, err) }()

	if len(raw) > s.cfg.MaxTokenBytes {
		return RefreshResult{}, ErrTokenInvalid
	}
	claims, err := s.tokens.Verify(raw, TokenRefresh, now)
	if err != nil {
		return RefreshResult{}, err
	}

	digest := s.digest.Hash(raw)
	entry, err := s.ledger.Lookup(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrLedgerEntryNotFound) {
			return RefreshResult{}, ErrTokenRevoked
		}
		return RefreshResult{}, fmt.Errorf("ledger lookup: %w", err)
	}
	if entry.CustomerID != claims.CustomerID {
		return RefreshResult{}, ErrTokenInvalid
	}

	rotating := s.cfg.RotateRefreshTokens
	switch {
	case entry.IsRevoked && !(rotating && entry.ReplacedByID != nil):
		return RefreshResult{}, ErrTokenRevoked
	case !entry.IsRevoked && !now.Before(entry.ExpiresAt):
		return RefreshResult{}, ErrTokenExpired
	}

	c, err := s.customers.FindByID(ctx, claims.CustomerID)
	if err != nil {
		if customer.IsNotFound(err) {
			return RefreshResult{}, ErrAccountDeactivated
		}
		return RefreshResult{}, fmt.Errorf("find customer: %w", err)
	}
	if !c.IsActive {
		return RefreshResult{}, ErrAccountDeactivated
	}

	access, err := s.tokens.Issue(c.ID, TokenAccess, now)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}
	res.Access = access

	if !rotating {
		return res, nil
	}

	next, err := s.tokens.Issue(c.ID, TokenRefresh, now)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.ledger.Rotate(ctx, digest, s.entryFor(c.ID, next, now), now); err != nil {
		if errors.Is(err, ErrRefreshReuseDetected) {
			s.log.WarnContext(ctx, "auth.refresh.reuse_detected", "customer_id", c.ID, "token_id", entry.ID)
			return RefreshResult{}, ErrTokenRevoked
		}
		if errors.Is(err, ErrLedgerEntryNotFound) {
			return RefreshResult{}, ErrTokenRevoked
		}
		return RefreshResult{}, err
	}
	res.Refresh = &next
	return res, nil
}

// Logout revokes every refresh token of the customer. Repeating it is a no-op.
func (s *Service) Logout(ctx context.Context, now time.Time, customerID int64) (err error) {
	ctx, span := s.start(ctx, "session.Logout")
	defer func() { finish(span, err) }()

	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return mapStoreErr(err)
	}
	n, err := s.ledger.RevokeAll(ctx, customerID, now)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.log.DebugContext(ctx, "auth.logout", "customer_id", customerID, "revoked", n)
	return nil
}

// GetProfile returns the customer record.
func (s *Service) GetProfile(ctx context.Context, customerID int64) (c customer.Customer, err error) {
	ctx, span := s.start(ctx, "session.GetProfile")
	defer func() { finish(span, err) }()

	c, err = s.customers.FindByID(ctx, customerID)
	if err != nil {
		return customer.Customer{}, mapStoreErr(err)
	}
	return c, nil
}

// UpdateProfile applies the allow-listed fields of in. An empty patch
// returns the current record unchanged.
func (s *Service) UpdateProfile(ctx context.Context, now time.Time, customerID int64, in ProfileInput) (c customer.Customer, err error) {
	ctx, span := s.start(ctx, "session.UpdateProfile")
	defer func() { finish(span, err) }()

	patch, err := profilePatch(in)
	if err != nil {
		return customer.Customer{}, err
	}
	if patch.Empty() {
		c, err = s.customers.FindByID(ctx, customerID)
	} else {
		c, err = s.customers.UpdateProfile(ctx, customerID, patch, now)
	}
	if err != nil {
		return customer.Customer{}, mapStoreErr(err)
	}
	return c, nil
}

// ChangePassword replaces the password after verifying the current one.
// Outstanding refresh tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, now time.Time, customerID int64, current, next string) (err error) {
	ctx, span := s.start(ctx, "session.ChangePassword")
	defer func() { finish(span, err) }()

	c, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return mapStoreErr(err)
	}

	ok, _, err := s.hasher.Verify(c.PasswordHash, current)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := s.checkPassword("new_password", "New password", next); err != nil {
		return err
	}
	hash, err := s.hashPassword("new_password", "New password", next)
	if err != nil {
		return err
	}
	return mapStoreErr(s.customers.SetPassword(ctx, customerID, hash, now))
}

// DeactivateAccount blocks login and refresh, and revokes all refresh tokens.
func (s *Service) DeactivateAccount(ctx context.Context, now time.Time, customerID int64) (err error) {
	ctx, span := s.start(ctx, "session.DeactivateAccount")
	defer func() { finish(span, err) }()

	if err := s.customers.SetActive(ctx, customerID, false, now); err != nil {
		return mapStoreErr(err)
	}
	if _, err := s.ledger.RevokeAll(ctx, customerID, now); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// ReactivateAccount re-enables login. Previously revoked tokens stay revoked.
func (s *Service) ReactivateAccount(ctx context.Context, now time.Time, customerID int64) (err error) {
	ctx, span := s.start(ctx, "session.ReactivateAccount")
	defer func() { finish(span, err) }()

	return mapStoreErr(s.customers.SetActive(ctx, customerID, true, now))
}

// hashPassword hashes plain, translating hasher policy failures into
// ValidationError for field.
func (s *Service) hashPassword(field, label, plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, password.ErrPasswordTooShort):
		return "", invalidField(field, fmt.Sprintf("%s is too short", label))
	case errors.Is(err, password.ErrPasswordTooLong):
		return "", invalidField(field, fmt.Sprintf("%s is too long", label))
	case errors.Is(err, password.ErrWeakPassword):
		return "", invalidField(field, fmt.Sprintf("%s is too weak", label))
	default:
		return "", fmt.Errorf("hash password: %w", err)
	}
}
