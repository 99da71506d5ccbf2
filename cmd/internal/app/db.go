package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"carepass/cmd/customer"
	"carepass/cmd/internal/auth/session"
	"carepass/cmd/internal/dbx"
	"carepass/cmd/internal/migrations"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// A non-public schema becomes the connection search_path so migrations land
// next to the schema-qualified queries.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	if s := cfg.DBSchema; s != "" && s != "public" {
		if !customer.PgIdentIsValid(s) {
			return nil, fmt.Errorf("invalid CAREPASS_DB_SCHEMA %q", s)
		}
		pcfg.ConnConfig.RuntimeParams["search_path"] = s
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// Backend is the persistence layer selected by CAREPASS_DB_DRIVER. The app
// owns the underlying pool or handle; stores never close it.
type Backend struct {
	Driver    string
	Customers customer.Store
	Ledger    session.Ledger

	pool *pgxpool.Pool
	db   *sql.DB
}

// OpenBackend connects to the configured database and builds its stores.
// It does not migrate; call Migrate for that.
func OpenBackend(ctx context.Context, cfg Config, log Logger) (*Backend, error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		customers, err := customer.NewPostgresStore(pool, customer.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}
		ledger, err := session.NewPostgresLedger(pool, cfg.DBSchema)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema, "max_conns", pool.Config().MaxConns)
		return &Backend{Driver: DriverPostgres, Customers: customers, Ledger: ledger, pool: pool}, nil

	case DriverSQLite:
		db, err := dbx.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		customers, err := customer.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		ledger, err := session.NewSQLiteLedger(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return &Backend{Driver: DriverSQLite, Customers: customers, Ledger: ledger, db: db}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// Migrate applies pending migrations for the backend's dialect.
func (b *Backend) Migrate(ctx context.Context) (migrations.Result, error) {
	if b.pool != nil {
		return migrations.UpPool(ctx, b.pool)
	}
	return migrations.Up(ctx, b.db, migrations.SQLite)
}

// Ping reports whether the database answers within timeout.
func (b *Backend) Ping(ctx context.Context, timeout time.Duration) error {
	if b.pool != nil {
		return PingDB(ctx, b.pool, timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.db.PingContext(ctx)
}

// Close releases the pool or handle.
func (b *Backend) Close() error {
	if b.pool != nil {
		b.pool.Close()
		return nil
	}
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
