package customer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carepass/cmd/internal/dbx"
	"carepass/cmd/internal/migrations"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	ctx := context.Background()
	db, err := dbx.OpenSQLite(ctx, filepath.Join(t.TempDir(), "customers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = migrations.Up(ctx, db, migrations.SQLite)
	require.NoError(t, err)

	st, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return st
}

func strp(s string) *string { return &s }

func sampleInput(now time.Time) CreateInput {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	return CreateInput{
		Email:        "  A@B.com ",
		MobileNumber: " 9999999999 ",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		FirstName:    "Ann",
		LastName:     "Lee",
		DateOfBirth:  &dob,
		City:         strp("Pune"),
		PostalCode:   strp("411001"),
		Now:          now,
	}
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	created, err := st.Create(ctx, sampleInput(now))
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "a@b.com", created.Email)
	assert.Equal(t, "9999999999", created.MobileNumber)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsVerified)
	assert.Equal(t, "Ann Lee", created.FullName())
	assert.True(t, created.CreatedAt.Equal(now))
	assert.Nil(t, created.LastLogin)
	require.NotNil(t, created.DateOfBirth)
	assert.Equal(t, "1990-05-17", created.DateOfBirth.Format(DateLayout))

	byID, err := st.FindByID(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, byID); diff != "" {
		t.Fatalf("FindByID mismatch (-want +got):\n%s", diff)
	}

	byEmail, err := st.FindByEmail(ctx, "A@b.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byMobile, err := st.FindByMobile(ctx, "9999999999")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byMobile.ID)

	ok, err := st.ExistsByEmail(ctx, "a@B.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.ExistsByMobile(ctx, "1111111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	_, err := st.FindByID(ctx, 42)
	assert.True(t, IsNotFound(err))
	_, err = st.FindByEmail(ctx, "nobody@x.io")
	assert.True(t, IsNotFound(err))
	_, err = st.FindByMobile(ctx, "0000000000")
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(st.SetPassword(ctx, 42, "h", time.Now())))
	assert.True(t, IsNotFound(st.RecordLogin(ctx, 42, time.Now())))
	assert.True(t, IsNotFound(st.SetActive(ctx, 42, false, time.Now())))
	assert.True(t, IsNotFound(st.Delete(ctx, 42)))
	_, err = st.UpdateProfile(ctx, 42, ProfilePatch{City: strp("x")}, time.Now())
	assert.True(t, IsNotFound(err))
}

func TestSQLiteStore_Conflicts(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.Create(ctx, sampleInput(now))
	require.NoError(t, err)

	dupEmail := sampleInput(now)
	dupEmail.Email = "a@b.COM"
	dupEmail.MobileNumber = "8888888888"
	_, err = st.Create(ctx, dupEmail)
	field, ok := ConflictField(err)
	require.True(t, ok, "expected conflict, got %v", err)
	assert.Equal(t, FieldEmail, field)

	dupMobile := sampleInput(now)
	dupMobile.Email = "other@b.com"
	_, err = st.Create(ctx, dupMobile)
	field, ok = ConflictField(err)
	require.True(t, ok, "expected conflict, got %v", err)
	assert.Equal(t, FieldMobile, field)
}

func TestSQLiteStore_CreateRejectsEmptyHash(t *testing.T) {
	st := newSQLiteStore(t)

	in := sampleInput(time.Now())
	in.PasswordHash = ""
	_, err := st.Create(context.Background(), in)
	assert.True(t, IsInvalidInput(err))
}

func TestSQLiteStore_UpdateProfile(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := st.Create(ctx, sampleInput(t0))
	require.NoError(t, err)

	t1 := t0.Add(time.Hour)
	got, err := st.UpdateProfile(ctx, c.ID, ProfilePatch{
		City:       strp(" Mumbai "),
		PostalCode: strp("400001"),
	}, t1)
	require.NoError(t, err)
	require.NotNil(t, got.City)
	assert.Equal(t, "Mumbai", *got.City)
	assert.Equal(t, "400001", *got.PostalCode)
	assert.Equal(t, "Ann", got.FirstName, "untouched fields keep their values")
	assert.Equal(t, c.Email, got.Email)
	assert.True(t, got.UpdatedAt.Equal(t1))
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = st.UpdateProfile(ctx, c.ID, ProfilePatch{FirstName: strp("  ")}, t1)
	assert.True(t, IsInvalidInput(err))
}

func TestSQLiteStore_PasswordLoginActive(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := st.Create(ctx, sampleInput(t0))
	require.NoError(t, err)

	require.NoError(t, st.SetPassword(ctx, c.ID, "new-hash", t0.Add(time.Minute)))
	require.NoError(t, st.RecordLogin(ctx, c.ID, t0.Add(2*time.Minute)))
	require.NoError(t, st.SetActive(ctx, c.ID, false, t0.Add(3*time.Minute)))
	assert.True(t, IsInvalidInput(st.SetPassword(ctx, c.ID, " ", t0)))

	got, err := st.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(t0.Add(2*time.Minute)))
	assert.False(t, got.IsActive)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(3*time.Minute)))
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		in := sampleInput(now)
		in.Email = "user" + string(rune('a'+i)) + "@x.io"
		in.MobileNumber = "900000000" + string(rune('0'+i))
		_, err := st.Create(ctx, in)
		require.NoError(t, err)
	}

	page, err := st.List(ctx, ListInput{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Customers, 2)
	assert.Equal(t, "userc@x.io", page.Customers[0].Email)

	require.NoError(t, st.Delete(ctx, page.Customers[0].ID))
	page, err = st.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPerPage, page.PerPage)
}
