package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carepass/cmd/internal/app"
	"carepass/cmd/internal/auth/session"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CAREPASS_DB_DRIVER", "sqlite")
	t.Setenv("CAREPASS_SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("CAREPASS_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CAREPASS_TOKEN_HMAC_KEY", "")
	t.Setenv("CAREPASS_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CAREPASS_ARGON2_ITERATIONS", "1")
	t.Setenv("CAREPASS_ARGON2_PARALLELISM", "1")
	t.Setenv("CAREPASS_LOG_LEVEL", "error")
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-env-file", ""}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func seedCustomer(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()

	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := app.OpenBackend(ctx, cfg, log)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Migrate(ctx)
	require.NoError(t, err)
	svc, err := app.NewSessionService(cfg, b, log)
	require.NoError(t, err)

	res, err := svc.Signup(ctx, time.Now().UTC(), session.SignupInput{
		Email:        "a@b.com",
		MobileNumber: "9876543210",
		Password:     "longpass1",
		FirstName:    "A",
		LastName:     "B",
	})
	require.NoError(t, err)
	return res.Customer.ID
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t, "", "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "bogus"`)

	code, stdout, _ := runCLI(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "customers set-password")

	code, _, stderr = runCLI(t, "", "customers")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "missing subcommand")

	code, _, stderr = runCLI(t, "", "customers", "deactivate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-id is required")
}

func TestRun_Migrate(t *testing.T) {
	setupEnv(t)

	code, stdout, stderr := runCLI(t, "", "migrate")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "sqlite: applied 2 migration(s)")

	code, stdout, _ = runCLI(t, "", "migrate")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "applied 0 migration(s)")
}

func TestRun_CustomerLifecycle(t *testing.T) {
	setupEnv(t)
	id := seedCustomer(t)
	idArg := strconv.FormatInt(id, 10)

	code, stdout, stderr := runCLI(t, "", "customers", "list")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "a@b.com")
	assert.Contains(t, stdout, "1 total")

	code, stdout, stderr = runCLI(t, "", "customers", "deactivate", "-id", idArg)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "deactivate ok")

	code, stdout, _ = runCLI(t, "", "customers", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "false")

	code, _, stderr = runCLI(t, "short\n", "customers", "set-password", "-id", idArg)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "at least 8 characters")

	code, _, stderr = runCLI(t, "brandnew22\n", "customers", "set-password", "-id", idArg)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = runCLI(t, "", "customers", "reactivate", "-id", idArg)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = runCLI(t, "", "customers", "delete", "-id", idArg)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = runCLI(t, "", "customers", "delete", "-id", idArg)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "customer "+idArg+" not found")
}
