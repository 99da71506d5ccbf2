package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"carepass/cmd/customer"
)

const (
	// MinPasswordLength is the account password floor.
	MinPasswordLength = 8
	// MinMobileLength is the minimum mobile number length in characters.
	MinMobileLength = 10
)

func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

// validateSignup normalizes in and checks fields in a fixed order:
// email, mobile, password, first name, last name, then optional fields.
func (s *Service) validateSignup(in SignupInput) (SignupInput, *time.Time, error) {
	in.Email = customer.NormalizeEmail(in.Email)
	in.MobileNumber = customer.NormalizeMobile(in.MobileNumber)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if !validEmail(in.Email) {
		return in, nil, invalidField("email", "Valid email is required")
	}
	if utf8.RuneCountInString(in.MobileNumber) < MinMobileLength {
		return in, nil, invalidField("mobile_number", fmt.Sprintf("Valid mobile number is required (minimum %d digits)", MinMobileLength))
	}
	if err := s.checkPassword("password", "Password", in.Password); err != nil {
		return in, nil, err
	}
	if in.FirstName == "" {
		return in, nil, invalidField("first_name", "First name is required")
	}
	if in.LastName == "" {
		return in, nil, invalidField("last_name", "Last name is required")
	}

	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return in, nil, err
	}
	return in, dob, nil
}

func (s *Service) checkPassword(field, label, pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < s.minPassword {
		return invalidField(field, fmt.Sprintf("%s must be at least %d characters", label, s.minPassword))
	}
	if n > s.maxPassword {
		return invalidField(field, fmt.Sprintf("%s must be at most %d characters", label, s.maxPassword))
	}
	return nil
}

func validateLogin(email, password string) (string, error) {
	email = customer.NormalizeEmail(email)
	if !validEmail(email) {
		return email, invalidField("email", "Valid email is required")
	}
	if password == "" {
		return email, invalidField("password", "Password is required")
	}
	return email, nil
}

// parseDate accepts nil, blank, or a YYYY-MM-DD date.
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := time.Parse(customer.DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalidField("date_of_birth", "Date of birth must be in YYYY-MM-DD format")
	}
	return &d, nil
}

// profilePatch converts and validates a ProfileInput.
// Present-but-blank names are rejected; required fields cannot be cleared.
func profilePatch(in ProfileInput) (customer.ProfilePatch, error) {
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return customer.ProfilePatch{}, invalidField("first_name", "First name is required")
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		return customer.ProfilePatch{}, invalidField("last_name", "Last name is required")
	}
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return customer.ProfilePatch{}, err
	}
	return customer.ProfilePatch{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: dob,
		Address:     in.Address,
		City:        in.City,
		State:       in.State,
		PostalCode:  in.PostalCode,
	}, nil
}
