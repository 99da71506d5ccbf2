package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carepass/cmd/internal/dbx"
)

// SQLiteLedger implements Ledger over database/sql.
// Write transactions start IMMEDIATE (see dbx.SQLiteDSN), which serializes Rotate.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger wraps an open database. The caller owns db.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("session: nil db")
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteLedgerColumns = `id, customer_id, token_hash, expires_at, is_revoked, created_at, revoked_at, replaced_by_id`

// Record inserts a new active entry.
func (l *SQLiteLedger) Record(ctx context.Context, e LedgerEntry) error {
	return sqliteInsertEntry(ctx, l.db, e)
}

// Lookup loads the entry for a digest.
func (l *SQLiteLedger) Lookup(ctx context.Context, tokenHash string) (LedgerEntry, error) {
	return sqliteLookup(ctx, l.db, tokenHash)
}

// IsActive reports whether the digest maps to a usable entry.
func (l *SQLiteLedger) IsActive(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	return isActive(ctx, l.Lookup, tokenHash, now)
}

// RevokeAll revokes every unrevoked entry of the customer.
func (l *SQLiteLedger) RevokeAll(ctx context.Context, customerID int64, now time.Time) (int64, error) {
	return sqliteRevokeAll(ctx, l.db, customerID, now)
}

// Rotate swaps the entry for oldHash with next in one transaction.
func (l *SQLiteLedger) Rotate(ctx context.Context, oldHash string, next LedgerEntry, now time.Time) error {
	reuse := false

	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		old, err := sqliteLookup(ctx, tx, oldHash)
		if err != nil {
			return err
		}

		reuse, err = rotateCheck(old, next, now)
		if err != nil {
			return err
		}
		if reuse {
			// Commit the revocation; the caller still gets ErrRefreshReuseDetected.
			_, err := sqliteRevokeAll(ctx, tx, old.CustomerID, now)
			return err
		}

		if err := sqliteInsertEntry(ctx, tx, next); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE refresh_tokens
			    SET is_revoked = 1,
			        revoked_at = ?,
			        replaced_by_id = ?
			  WHERE id = ?`,
			dbx.ToMillis(now), next.ID, old.ID,
		)
		return err
	})
	if err != nil {
		return err
	}
	if reuse {
		return ErrRefreshReuseDetected
	}
	return nil
}

func sqliteInsertEntry(ctx context.Context, q dbx.DBTX, e LedgerEntry) error {
	if e.ID == "" || e.TokenHash == "" || e.CustomerID <= 0 {
		return fmt.Errorf("session: incomplete ledger entry")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, customer_id, token_hash, expires_at, is_revoked, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		e.ID, e.CustomerID, e.TokenHash, dbx.ToMillis(e.ExpiresAt), dbx.ToMillis(created),
	)
	return err
}

func sqliteRevokeAll(ctx context.Context, q dbx.DBTX, customerID int64, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE refresh_tokens
		    SET is_revoked = 1,
		        revoked_at = ?
		  WHERE customer_id = ? AND is_revoked = 0`,
		dbx.ToMillis(now), customerID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sqliteLookup(ctx context.Context, q dbx.DBTX, tokenHash string) (LedgerEntry, error) {
	var (
		e         LedgerEntry
		expiresAt int64
		createdAt int64
		revokedAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT `+sqliteLedgerColumns+` FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash,
	).Scan(
		&e.ID,
		&e.CustomerID,
		&e.TokenHash,
		&expiresAt,
		&e.IsRevoked,
		&createdAt,
		&revokedAt,
		&e.ReplacedByID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, ErrLedgerEntryNotFound
		}
		return LedgerEntry{}, err
	}
	e.ExpiresAt = dbx.FromMillis(expiresAt)
	e.CreatedAt = dbx.FromMillis(createdAt)
	e.RevokedAt = dbx.FromNullMillis(revokedAt)
	return e, nil
}
