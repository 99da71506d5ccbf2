// Package pgtest provisions isolated, migrated PostgreSQL schemas for tests.
//
// A database is taken from CAREPASS_DATABASE_URL when set. Otherwise, with
// CAREPASS_TEST_CONTAINERS=true, one postgres container is started per test
// binary. With neither, callers are skipped.
package pgtest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"carepass/cmd/internal/ids"
	"carepass/cmd/internal/migrations"
)

const (
	EnvDatabaseURL = "CAREPASS_DATABASE_URL"
	EnvContainers  = "CAREPASS_TEST_CONTAINERS"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// DB is a migrated schema owned by one test.
type DB struct {
	Pool   *pgxpool.Pool
	Schema string
}

// New returns a pool whose search_path points at a fresh migrated schema.
// The schema is dropped on cleanup.
func New(t *testing.T) DB {
	t.Helper()

	raw := baseURL(t)

	admin := open(t, raw, "")
	schema := "carepass_it_" + strings.ToLower(mustULID(t))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := admin.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dcancel()
		_, _ = admin.Exec(dctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
		admin.Close()
	})

	pool := open(t, raw, schema)
	t.Cleanup(pool.Close)

	if _, err := migrations.UpPool(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return DB{Pool: pool, Schema: schema}
}

func baseURL(t *testing.T) string {
	t.Helper()

	if raw := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); raw != "" {
		return raw
	}
	if on, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvContainers))); !on {
		t.Skipf("integration test skipped: set %s or %s=true", EnvDatabaseURL, EnvContainers)
	}

	containerOnce.Do(func() {
		containerURL, containerErr = startContainer()
	})
	if containerErr != nil {
		t.Fatalf("postgres container: %v", containerErr)
	}
	return containerURL
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("carepass"),
		postgres.WithUsername("carepass"),
		postgres.WithPassword("carepass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start postgres container: %w", err)
	}
	return c.ConnectionString(ctx, "sslmode=disable")
}

func open(t *testing.T, raw, schema string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvDatabaseURL, err)
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	// Validate acquire quickly (fast fail).
	c, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		if shouldSkip(err) {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

// shouldSkip treats network failures as "no database here" outside CI.
func shouldSkip(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host")
}

func mustULID(t *testing.T) string {
	t.Helper()

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}
