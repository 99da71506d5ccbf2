package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carepass/cmd/internal/dbx"
)

// SQLiteStore implements Store over database/sql with the modernc SQLite driver.
// Timestamps are stored as UTC unix milliseconds and dates as YYYY-MM-DD text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database. The caller owns db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("customer: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteCustomerColumns = `id, email, mobile_number, password_hash,
	first_name, last_name, date_of_birth, address, city, state, postal_code,
	is_active, is_verified, created_at, updated_at, last_login`

func (s *SQLiteStore) ready(ctx context.Context, op string) error {
	if s == nil || s.db == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	return ctx.Err()
}

// Create inserts a new customer.
func (s *SQLiteStore) Create(ctx context.Context, in CreateInput) (Customer, error) {
	const op = "customer.Create"

	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	in, err := validateCreate(op, in)
	if err != nil {
		return Customer{}, err
	}

	now := dbx.ToMillis(in.Now)
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO customers (
		     email, mobile_number, password_hash,
		     first_name, last_name, date_of_birth, address, city, state, postal_code,
		     is_active, is_verified, created_at, updated_at
		   ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
		 RETURNING `+sqliteCustomerColumns,
		in.Email,
		in.MobileNumber,
		in.PasswordHash,
		in.FirstName,
		in.LastName,
		sqliteDate(in.DateOfBirth),
		in.Address,
		in.City,
		in.State,
		in.PostalCode,
		now,
		now,
	)

	c, err := sqliteScanCustomer(row)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return Customer{}, ConflictError{Op: op, Field: sqliteUniqueField(err)}
		}
		return Customer{}, err
	}
	return c, nil
}

// FindByID loads a customer by id.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (Customer, error) {
	const op = "customer.FindByID"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `id = ?`, id)
}

// FindByEmail loads a customer by normalized email.
func (s *SQLiteStore) FindByEmail(ctx context.Context, email string) (Customer, error) {
	const op = "customer.FindByEmail"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `email = ?`, NormalizeEmail(email))
}

// FindByMobile loads a customer by mobile number.
func (s *SQLiteStore) FindByMobile(ctx context.Context, mobile string) (Customer, error) {
	const op = "customer.FindByMobile"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `mobile_number = ?`, NormalizeMobile(mobile))
}

func (s *SQLiteStore) findOne(ctx context.Context, op, where string, arg any) (Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCustomerColumns+` FROM customers WHERE `+where,
		arg,
	)
	c, err := sqliteScanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, notFound(op)
		}
		return Customer{}, err
	}
	return c, nil
}

// ExistsByEmail reports whether a customer with the normalized email exists.
func (s *SQLiteStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "customer.ExistsByEmail"
	if err := s.ready(ctx, op); err != nil {
		return false, err
	}
	return s.exists(ctx, `email = ?`, NormalizeEmail(email))
}

// ExistsByMobile reports whether a customer with the mobile number exists.
func (s *SQLiteStore) ExistsByMobile(ctx context.Context, mobile string) (bool, error) {
	const op = "customer.ExistsByMobile"
	if err := s.ready(ctx, op); err != nil {
		return false, err
	}
	return s.exists(ctx, `mobile_number = ?`, NormalizeMobile(mobile))
}

func (s *SQLiteStore) exists(ctx context.Context, where string, arg any) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE `+where+`)`,
		arg,
	).Scan(&n)
	return n == 1, err
}

// UpdateProfile applies the non-nil patch fields in a single statement.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id int64, patch ProfilePatch, now time.Time) (Customer, error) {
	const op = "customer.UpdateProfile"

	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	patch, err := normalizePatch(op, patch)
	if err != nil {
		return Customer{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE customers
		    SET first_name    = COALESCE(?, first_name),
		        last_name     = COALESCE(?, last_name),
		        date_of_birth = COALESCE(?, date_of_birth),
		        address       = COALESCE(?, address),
		        city          = COALESCE(?, city),
		        state         = COALESCE(?, state),
		        postal_code   = COALESCE(?, postal_code),
		        updated_at    = ?
		  WHERE id = ?
		 RETURNING `+sqliteCustomerColumns,
		patch.FirstName,
		patch.LastName,
		sqliteDate(patch.DateOfBirth),
		patch.Address,
		patch.City,
		patch.State,
		patch.PostalCode,
		dbx.ToMillis(pgNow(now)),
		id,
	)

	c, err := sqliteScanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, notFound(op)
		}
		return Customer{}, err
	}
	return c, nil
}

// SetPassword replaces the stored hash.
func (s *SQLiteStore) SetPassword(ctx context.Context, id int64, hash string, now time.Time) error {
	const op = "customer.SetPassword"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	if strings.TrimSpace(hash) == "" {
		return invalid(op, "password hash is required")
	}
	return s.execOne(ctx, op,
		`UPDATE customers SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, dbx.ToMillis(pgNow(now)), id,
	)
}

// RecordLogin stamps last_login.
func (s *SQLiteStore) RecordLogin(ctx context.Context, id int64, now time.Time) error {
	const op = "customer.RecordLogin"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	ms := dbx.ToMillis(pgNow(now))
	return s.execOne(ctx, op,
		`UPDATE customers SET last_login = ?, updated_at = ? WHERE id = ?`,
		ms, ms, id,
	)
}

// SetActive toggles is_active.
func (s *SQLiteStore) SetActive(ctx context.Context, id int64, active bool, now time.Time) error {
	const op = "customer.SetActive"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	return s.execOne(ctx, op,
		`UPDATE customers SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, dbx.ToMillis(pgNow(now)), id,
	)
}

// List returns one page ordered by id.
func (s *SQLiteStore) List(ctx context.Context, in ListInput) (ListResult, error) {
	const op = "customer.List"

	if err := s.ready(ctx, op); err != nil {
		return ListResult{}, err
	}
	limit, offset := in.normalized()

	out := ListResult{Page: offset/limit + 1, PerPage: limit}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&out.Total); err != nil {
		return ListResult{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteCustomerColumns+` FROM customers ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return ListResult{}, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c, err := sqliteScanCustomer(rows)
		if err != nil {
			return ListResult{}, err
		}
		out.Customers = append(out.Customers, c)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	return out, nil
}

// Delete removes the customer row. Ledger rows cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	const op = "customer.Delete"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	return s.execOne(ctx, op, `DELETE FROM customers WHERE id = ?`, id)
}

func (s *SQLiteStore) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func sqliteScanCustomer(row rowScanner) (Customer, error) {
	var (
		c         Customer
		dob       sql.NullString
		createdAt int64
		updatedAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.MobileNumber,
		&c.PasswordHash,
		&c.FirstName,
		&c.LastName,
		&dob,
		&c.Address,
		&c.City,
		&c.State,
		&c.PostalCode,
		&c.IsActive,
		&c.IsVerified,
		&createdAt,
		&updatedAt,
		&lastLogin,
	)
	if err != nil {
		return Customer{}, err
	}

	if dob.Valid && dob.String != "" {
		d, err := time.Parse(DateLayout, dob.String)
		if err != nil {
			return Customer{}, fmt.Errorf("customer: stored date_of_birth %q: %w", dob.String, err)
		}
		c.DateOfBirth = &d
	}
	c.CreatedAt = dbx.FromMillis(createdAt)
	c.UpdatedAt = dbx.FromMillis(updatedAt)
	c.LastLogin = dbx.FromNullMillis(lastLogin)
	return c, nil
}

func sqliteDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// sqliteUniqueField maps "UNIQUE constraint failed: customers.email" to a logical field.
func sqliteUniqueField(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "customers.email"):
		return FieldEmail
	case strings.Contains(msg, "customers.mobile_number"):
		return FieldMobile
	default:
		return "unique"
	}
}
