package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger implements Ledger using PostgreSQL.
// Rotation is serialized via SELECT ... FOR UPDATE on the old row.
type PostgresLedger struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresLedger creates a Postgres-backed ledger in schema (default "public").
func NewPostgresLedger(pool *pgxpool.Pool, schema string) (*PostgresLedger, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	if schema == "" {
		schema = "public"
	}
	return &PostgresLedger{
		pool:  pool,
		table: pgx.Identifier{schema, "refresh_tokens"}.Sanitize(),
	}, nil
}

const pgLedgerColumns = `id, customer_id, token_hash, expires_at, is_revoked, created_at, revoked_at, replaced_by_id`

// Record inserts a new active entry.
func (l *PostgresLedger) Record(ctx context.Context, e LedgerEntry) error {
	return pgInsertEntry(ctx, l.pool, l.table, e)
}

// Lookup loads the entry for a digest.
func (l *PostgresLedger) Lookup(ctx context.Context, tokenHash string) (LedgerEntry, error) {
	return pgScanEntry(l.pool.QueryRow(ctx,
		`SELECT `+pgLedgerColumns+` FROM `+l.table+` WHERE token_hash = $1`,
		tokenHash,
	))
}

// IsActive reports whether the digest maps to a usable entry.
func (l *PostgresLedger) IsActive(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	return isActive(ctx, l.Lookup, tokenHash, now)
}

// RevokeAll revokes every unrevoked entry of the customer.
func (l *PostgresLedger) RevokeAll(ctx context.Context, customerID int64, now time.Time) (int64, error) {
	return pgRevokeAll(ctx, l.pool, l.table, customerID, now)
}

// Rotate swaps the entry for oldHash with next in one transaction.
func (l *PostgresLedger) Rotate(ctx context.Context, oldHash string, next LedgerEntry, now time.Time) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the old row so concurrent refreshes of the same token serialize.
	old, err := pgScanEntry(tx.QueryRow(ctx,
		`SELECT `+pgLedgerColumns+` FROM `+l.table+` WHERE token_hash = $1 FOR UPDATE`,
		oldHash,
	))
	if err != nil {
		return err
	}

	reuse, err := rotateCheck(old, next, now)
	if err != nil {
		return err
	}
	if reuse {
		if _, err := pgRevokeAll(ctx, tx, l.table, old.CustomerID, now); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		return ErrRefreshReuseDetected
	}

	if err := pgInsertEntry(ctx, tx, l.table, next); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE `+l.table+`
		    SET is_revoked = TRUE,
		        revoked_at = $2,
		        replaced_by_id = $3
		  WHERE id = $1`,
		old.ID, now.UTC(), next.ID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// pgExecQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgExecQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgInsertEntry(ctx context.Context, q pgExecQuerier, table string, e LedgerEntry) error {
	if e.ID == "" || e.TokenHash == "" || e.CustomerID <= 0 {
		return fmt.Errorf("session: incomplete ledger entry")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO `+table+` (id, customer_id, token_hash, expires_at, is_revoked, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		e.ID, e.CustomerID, e.TokenHash, e.ExpiresAt.UTC(), created.UTC(),
	)
	return err
}

func pgRevokeAll(ctx context.Context, q pgExecQuerier, table string, customerID int64, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE `+table+`
		    SET is_revoked = TRUE,
		        revoked_at = $2
		  WHERE customer_id = $1 AND is_revoked = FALSE`,
		customerID, now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func pgScanEntry(row pgx.Row) (LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.CustomerID,
		&e.TokenHash,
		&e.ExpiresAt,
		&e.IsRevoked,
		&e.CreatedAt,
		&e.RevokedAt,
		&e.ReplacedByID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrLedgerEntryNotFound
		}
		return LedgerEntry{}, err
	}
	e.ExpiresAt = e.ExpiresAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	if e.RevokedAt != nil {
		t := e.RevokedAt.UTC()
		e.RevokedAt = &t
	}
	return e, nil
}
