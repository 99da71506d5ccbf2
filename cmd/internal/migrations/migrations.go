// Package migrations applies the embedded schema for each supported database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedded embed.FS

// Dialect names a supported schema flavor.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Result summarizes one migration run.
type Result struct {
	Applied []int64
	Version int64
}

func gooseDialect(d Dialect) (goose.Dialect, error) {
	switch d {
	case Postgres:
		return goose.DialectPostgres, nil
	case SQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", d)
	}
}

// FS returns the migration files for d.
func FS(d Dialect) (fs.FS, error) {
	if _, err := gooseDialect(d); err != nil {
		return nil, err
	}
	return fs.Sub(embedded, string(d))
}

// Up applies all pending migrations for d on db.
func Up(ctx context.Context, db *sql.DB, d Dialect) (Result, error) {
	dialect, err := gooseDialect(d)
	if err != nil {
		return Result{}, err
	}
	fsys, err := FS(d)
	if err != nil {
		return Result{}, err
	}

	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: up: %w", err)
	}

	out := Result{}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out.Applied = append(out.Applied, r.Source.Version)
	}

	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: version: %w", err)
	}
	out.Version = v
	return out, nil
}

// UpPool runs the Postgres migrations through a database/sql view of pool.
// The pool's search_path decides the target schema.
func UpPool(ctx context.Context, pool *pgxpool.Pool) (Result, error) {
	if pool == nil {
		return Result{}, fmt.Errorf("migrations: nil pool")
	}
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return Up(ctx, db, Postgres)
}
