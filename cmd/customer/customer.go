package customer

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage layout for DateOfBirth.
const DateLayout = "2006-01-02"

// Customer is the canonical account record.
// PasswordHash is opaque to this package and must never leave the service layer.
type Customer struct {
	ID           int64
	Email        string
	MobileNumber string
	PasswordHash string

	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Address     *string
	City        *string
	State       *string
	PostalCode  *string

	IsActive   bool
	IsVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CreateInput describes a new account. Email and MobileNumber are normalized by the store.
type CreateInput struct {
	Email        string
	MobileNumber string
	PasswordHash string
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	Address      *string
	City         *string
	State        *string
	PostalCode   *string
	Now          time.Time
}

// ProfilePatch is the allow-listed set of self-editable fields.
// A nil field leaves the stored value unchanged.
type ProfilePatch struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *time.Time
	Address     *string
	City        *string
	State       *string
	PostalCode  *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DateOfBirth == nil &&
		p.Address == nil && p.City == nil && p.State == nil && p.PostalCode == nil
}

// ListInput pages through customers ordered by id.
type ListInput struct {
	Page    int
	PerPage int
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func (in ListInput) normalized() (limit, offset int) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	per := in.PerPage
	if per <= 0 {
		per = defaultPerPage
	}
	if per > maxPerPage {
		per = maxPerPage
	}
	return per, (page - 1) * per
}

// ListResult is one page of customers plus the total row count.
type ListResult struct {
	Customers []Customer
	Total     int64
	Page      int
	PerPage   int
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
