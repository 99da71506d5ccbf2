package customer

import (
	"context"
	"time"
)

// Store is the customer persistence boundary.
//
// Lookups return NotFoundError when no row matches. Mutations that target a
// missing id also return NotFoundError. Every mutation sets updated_at.
type Store interface {
	// Create inserts a new active, unverified customer.
	// Returns ConflictError{Field: FieldEmail|FieldMobile} on a uniqueness violation.
	Create(ctx context.Context, in CreateInput) (Customer, error)

	FindByID(ctx context.Context, id int64) (Customer, error)
	FindByEmail(ctx context.Context, email string) (Customer, error)
	FindByMobile(ctx context.Context, mobile string) (Customer, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByMobile(ctx context.Context, mobile string) (bool, error)

	// UpdateProfile applies patch atomically and returns the updated record.
	UpdateProfile(ctx context.Context, id int64, patch ProfilePatch, now time.Time) (Customer, error)
	SetPassword(ctx context.Context, id int64, hash string, now time.Time) error
	RecordLogin(ctx context.Context, id int64, now time.Time) error
	SetActive(ctx context.Context, id int64, active bool, now time.Time) error

	List(ctx context.Context, in ListInput) (ListResult, error)
	Delete(ctx context.Context, id int64) error
}

func validateCreate(op string, in CreateInput) (CreateInput, error) {
	in.Email = NormalizeEmail(in.Email)
	in.MobileNumber = NormalizeMobile(in.MobileNumber)
	in.FirstName = trimmed(in.FirstName)
	in.LastName = trimmed(in.LastName)
	in.Address = trimPtr(in.Address)
	in.City = trimPtr(in.City)
	in.State = trimPtr(in.State)
	in.PostalCode = trimPtr(in.PostalCode)
	in.DateOfBirth = dateOnly(in.DateOfBirth)

	switch {
	case in.Email == "":
		return in, invalid(op, "email is required")
	case in.MobileNumber == "":
		return in, invalid(op, "mobile number is required")
	case in.PasswordHash == "":
		return in, invalid(op, "password hash is required")
	case in.FirstName == "" || in.LastName == "":
		return in, invalid(op, "first and last name are required")
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}

func normalizePatch(op string, p ProfilePatch) (ProfilePatch, error) {
	if p.FirstName != nil {
		v := trimmed(*p.FirstName)
		if v == "" {
			return p, invalid(op, "first name cannot be empty")
		}
		p.FirstName = &v
	}
	if p.LastName != nil {
		v := trimmed(*p.LastName)
		if v == "" {
			return p, invalid(op, "last name cannot be empty")
		}
		p.LastName = &v
	}
	p.Address = trimPtr(p.Address)
	p.City = trimPtr(p.City)
	p.State = trimPtr(p.State)
	p.PostalCode = trimPtr(p.PostalCode)
	p.DateOfBirth = dateOnly(p.DateOfBirth)
	return p, nil
}
