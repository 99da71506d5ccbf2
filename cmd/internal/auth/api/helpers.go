package authapi

import (
	"carepass/cmd/customer"
	"carepass/cmd/internal/auth/session"
)

func toCustomerResponse(c customer.Customer) customerResponse {
	out := customerResponse{
		ID:           c.ID,
		Email:        c.Email,
		MobileNumber: c.MobileNumber,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		FullName:     c.FullName(),
		Address:      c.Address,
		City:         c.City,
		State:        c.State,
		PostalCode:   c.PostalCode,
		IsActive:     c.IsActive,
		IsVerified:   c.IsVerified,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		LastLogin:    c.LastLogin,
	}
	if c.DateOfBirth != nil {
		d := c.DateOfBirth.Format(customer.DateLayout)
		out.DateOfBirth = &d
	}
	return out
}

// firstSet returns the first non-nil value, so postal_code wins over its aliases.
func firstSet(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func (req signupRequest) input() session.SignupInput {
	return session.SignupInput{
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  req.DateOfBirth,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		PostalCode:   firstSet(req.PostalCode, req.Pincode, req.ZipCode),
	}
}

func (req profileRequest) input() session.ProfileInput {
	return session.ProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		PostalCode:  firstSet(req.PostalCode, req.Pincode, req.ZipCode),
	}
}

func (req changePasswordRequest) current() string {
	if req.CurrentPassword != "" {
		return req.CurrentPassword
	}
	return req.OldPassword
}
