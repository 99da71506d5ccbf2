package customer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Uniqueness races are resolved by the database; unique violations map to ConflictError.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "public").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("customer: empty schema")
		}
		if !PgIdentIsValid(schema) {
			return fmt.Errorf("customer: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "public",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("customer: nil pool")
	}
	return st, nil
}

const pgCustomerColumns = `id, email, mobile_number, password_hash,
	first_name, last_name, date_of_birth, address, city, state, postal_code,
	is_active, is_verified, created_at, updated_at, last_login`

func (s *PostgresStore) table() string { return pgIdent(s.schema, "customers") }

func (s *PostgresStore) ready(ctx context.Context, op string) error {
	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	return ctx.Err()
}

// Create inserts a new customer.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Customer, error) {
	const op = "customer.Create"

	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	in, err := validateCreate(op, in)
	if err != nil {
		return Customer{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (
		     email, mobile_number, password_hash,
		     first_name, last_name, date_of_birth, address, city, state, postal_code,
		     is_active, is_verified, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, FALSE, $11, $11)
		 RETURNING `+pgCustomerColumns,
		in.Email,
		in.MobileNumber,
		in.PasswordHash,
		in.FirstName,
		in.LastName,
		in.DateOfBirth,
		in.Address,
		in.City,
		in.State,
		in.PostalCode,
		in.Now.UTC(),
	)

	c, err := pgScanCustomer(row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Customer{}, ConflictError{Op: op, Field: field}
		}
		return Customer{}, err
	}
	return c, nil
}

// FindByID loads a customer by id.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Customer, error) {
	const op = "customer.FindByID"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `id = $1`, id)
}

// FindByEmail loads a customer by normalized email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Customer, error) {
	const op = "customer.FindByEmail"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `email = $1`, NormalizeEmail(email))
}

// FindByMobile loads a customer by mobile number.
func (s *PostgresStore) FindByMobile(ctx context.Context, mobile string) (Customer, error) {
	const op = "customer.FindByMobile"
	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	return s.findOne(ctx, op, `mobile_number = $1`, NormalizeMobile(mobile))
}

func (s *PostgresStore) findOne(ctx context.Context, op, where string, arg any) (Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgCustomerColumns+` FROM `+s.table()+` WHERE `+where,
		arg,
	)
	c, err := pgScanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, notFound(op)
		}
		return Customer{}, err
	}
	return c, nil
}

// ExistsByEmail reports whether a customer with the normalized email exists.
func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const op = "customer.ExistsByEmail"
	if err := s.ready(ctx, op); err != nil {
		return false, err
	}
	return s.exists(ctx, `email = $1`, NormalizeEmail(email))
}

// ExistsByMobile reports whether a customer with the mobile number exists.
func (s *PostgresStore) ExistsByMobile(ctx context.Context, mobile string) (bool, error) {
	const op = "customer.ExistsByMobile"
	if err := s.ready(ctx, op); err != nil {
		return false, err
	}
	return s.exists(ctx, `mobile_number = $1`, NormalizeMobile(mobile))
}

func (s *PostgresStore) exists(ctx context.Context, where string, arg any) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table()+` WHERE `+where+`)`,
		arg,
	).Scan(&ok)
	return ok, err
}

// UpdateProfile applies the non-nil patch fields in a single statement.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, patch ProfilePatch, now time.Time) (Customer, error) {
	const op = "customer.UpdateProfile"

	if err := s.ready(ctx, op); err != nil {
		return Customer{}, err
	}
	patch, err := normalizePatch(op, patch)
	if err != nil {
		return Customer{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET first_name    = COALESCE($2, first_name),
		        last_name     = COALESCE($3, last_name),
		        date_of_birth = COALESCE($4, date_of_birth),
		        address       = COALESCE($5, address),
		        city          = COALESCE($6, city),
		        state         = COALESCE($7, state),
		        postal_code   = COALESCE($8, postal_code),
		        updated_at    = $9
		  WHERE id = $1
		 RETURNING `+pgCustomerColumns,
		id,
		patch.FirstName,
		patch.LastName,
		patch.DateOfBirth,
		patch.Address,
		patch.City,
		patch.State,
		patch.PostalCode,
		now.UTC(),
	)

	c, err := pgScanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, notFound(op)
		}
		return Customer{}, err
	}
	return c, nil
}

// SetPassword replaces the stored hash.
func (s *PostgresStore) SetPassword(ctx context.Context, id int64, hash string, now time.Time) error {
	const op = "customer.SetPassword"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	if strings.TrimSpace(hash) == "" {
		return invalid(op, "password hash is required")
	}
	return s.execOne(ctx, op,
		`UPDATE `+s.table()+` SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, pgNow(now),
	)
}

// RecordLogin stamps last_login.
func (s *PostgresStore) RecordLogin(ctx context.Context, id int64, now time.Time) error {
	const op = "customer.RecordLogin"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	now = pgNow(now)
	return s.execOne(ctx, op,
		`UPDATE `+s.table()+` SET last_login = $2, updated_at = $2 WHERE id = $1`,
		id, now,
	)
}

// SetActive toggles is_active.
func (s *PostgresStore) SetActive(ctx context.Context, id int64, active bool, now time.Time) error {
	const op = "customer.SetActive"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	return s.execOne(ctx, op,
		`UPDATE `+s.table()+` SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, pgNow(now),
	)
}

// List returns one page ordered by id.
func (s *PostgresStore) List(ctx context.Context, in ListInput) (ListResult, error) {
	const op = "customer.List"

	if err := s.ready(ctx, op); err != nil {
		return ListResult{}, err
	}
	limit, offset := in.normalized()

	out := ListResult{Page: offset/limit + 1, PerPage: limit}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.table()).Scan(&out.Total); err != nil {
		return ListResult{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+pgCustomerColumns+` FROM `+s.table()+` ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := pgScanCustomer(rows)
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
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	const op = "customer.Delete"

	if err := s.ready(ctx, op); err != nil {
		return err
	}
	return s.execOne(ctx, op, `DELETE FROM `+s.table()+` WHERE id = $1`, id)
}

func (s *PostgresStore) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

// ---- helpers ----

func pgScanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.MobileNumber,
		&c.PasswordHash,
		&c.FirstName,
		&c.LastName,
		&c.DateOfBirth,
		&c.Address,
		&c.City,
		&c.State,
		&c.PostalCode,
		&c.IsActive,
		&c.IsVerified,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.LastLogin,
	)
	if err != nil {
		return Customer{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if c.LastLogin != nil {
		t := c.LastLogin.UTC()
		c.LastLogin = &t
	}
	c.DateOfBirth = dateOnly(c.DateOfBirth)
	return c, nil
}

func pgNow(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now().UTC()
	}
	return now.UTC()
}

// PgIdentIsValid checks if a string is a safe Postgres identifier.
func PgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_customers_email":
		return FieldEmail, true
	case "uq_customers_mobile_number":
		return FieldMobile, true
	default:
		switch {
		case strings.Contains(c, "email"):
			return FieldEmail, true
		case strings.Contains(c, "mobile"):
			return FieldMobile, true
		default:
			return "unique", true
		}
	}
}
