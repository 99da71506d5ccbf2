package session

import (
	"context"
	"time"
)

// LedgerEntry is one issued refresh token. Only the digest is stored.
type LedgerEntry struct {
	ID           string
	CustomerID   int64
	TokenHash    string
	ExpiresAt    time.Time
	IsRevoked    bool
	CreatedAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *string
}

// Active reports whether the entry can still be exchanged at now.
func (e LedgerEntry) Active(now time.Time) bool {
	return !e.IsRevoked && now.Before(e.ExpiresAt)
}

// Ledger records refresh-token issuance and revocation.
//
// Entries are never deleted by the ledger itself.
type Ledger interface {
	// Record inserts a new active entry.
	Record(ctx context.Context, e LedgerEntry) error

	// Lookup returns the entry for a digest or ErrLedgerEntryNotFound.
	Lookup(ctx context.Context, tokenHash string) (LedgerEntry, error)

	// IsActive reports whether a matching, unrevoked, unexpired entry exists.
	IsActive(ctx context.Context, tokenHash string, now time.Time) (bool, error)

	// RevokeAll revokes every unrevoked entry of the customer and returns the
	// number of entries changed. Calling it again changes nothing.
	RevokeAll(ctx context.Context, customerID int64, now time.Time) (int64, error)

	// Rotate atomically verifies the entry for oldHash is active, records next,
	// and revokes the old entry pointing it at next.
	//
	// A revoked entry that was already replaced triggers reuse handling: all of
	// the customer's entries are revoked and ErrRefreshReuseDetected returned.
	// Other inactive entries yield ErrTokenRevoked or ErrTokenExpired.
	Rotate(ctx context.Context, oldHash string, next LedgerEntry, now time.Time) error
}

// isActive is the shared IsActive built on Lookup.
func isActive(ctx context.Context, lookup func(context.Context, string) (LedgerEntry, error), tokenHash string, now time.Time) (bool, error) {
	e, err := lookup(ctx, tokenHash)
	if err != nil {
		if err == ErrLedgerEntryNotFound {
			return false, nil
		}
		return false, err
	}
	return e.Active(now), nil
}

// rotateCheck classifies the locked old entry during Rotate.
// reuse is true when the entry was already rotated.
func rotateCheck(old LedgerEntry, next LedgerEntry, now time.Time) (reuse bool, err error) {
	if old.CustomerID != next.CustomerID {
		return false, ErrTokenInvalid
	}
	if old.IsRevoked {
		if old.ReplacedByID != nil {
			return true, nil
		}
		return false, ErrTokenRevoked
	}
	if !now.Before(old.ExpiresAt) {
		return false, ErrTokenExpired
	}
	return false, nil
}
