package session

import (
	"context"
	"fmt"
	"time"

	"carepass/cmd/customer"
)

// Operator actions. These bypass the customer's own credentials and are only
// reachable from the command line.

// ResetPassword sets a new password and revokes all refresh tokens.
func (s *Service) ResetPassword(ctx context.Context, now time.Time, customerID int64, next string) (err error) {
	ctx, span := s.start(ctx, "session.ResetPassword")
	defer func() { finish(span, err) }()

	if err := s.checkPassword("password", "Password", next); err != nil {
		return err
	}
	hash, err := s.hashPassword("password", "Password", next)
	if err != nil {
		return err
	}
	if err := s.customers.SetPassword(ctx, customerID, hash, now); err != nil {
		return mapStoreErr(err)
	}
	if _, err := s.ledger.RevokeAll(ctx, customerID, now); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// ListCustomers returns one page of customers ordered by id.
func (s *Service) ListCustomers(ctx context.Context, page, perPage int) (customer.ListResult, error) {
	return s.customers.List(ctx, customer.ListInput{Page: page, PerPage: perPage})
}

// DeleteCustomer removes the customer row. Ledger rows go with it.
func (s *Service) DeleteCustomer(ctx context.Context, customerID int64) (err error) {
	ctx, span := s.start(ctx, "session.DeleteCustomer")
	defer func() { finish(span, err) }()

	return mapStoreErr(s.customers.Delete(ctx, customerID))
}
