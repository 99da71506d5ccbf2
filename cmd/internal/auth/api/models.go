package authapi

import "time"

type signupRequest struct {
	Email        string  `json:"email"`
	MobileNumber string  `json:"mobile_number"`
	Password     string  `json:"password"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	DateOfBirth  *string `json:"date_of_birth"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postal_code"`
	Pincode      *string `json:"pincode"`
	ZipCode      *string `json:"zip_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type profileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	PostalCode  *string `json:"postal_code"`
	Pincode     *string `json:"pincode"`
	ZipCode     *string `json:"zip_code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
}

type customerResponse struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	MobileNumber string     `json:"mobile_number"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	FullName     string     `json:"full_name"`
	DateOfBirth  *string    `json:"date_of_birth"`
	Address      *string    `json:"address"`
	City         *string    `json:"city"`
	State        *string    `json:"state"`
	PostalCode   *string    `json:"postal_code"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type signupResponse struct {
	CustomerID   int64            `json:"customer_id"`
	Email        string           `json:"email"`
	Customer     customerResponse `json:"customer"`
	AccessToken  string           `json:"access_token,omitempty"`
	RefreshToken string           `json:"refresh_token,omitempty"`
}

type loginResponse struct {
	Customer     customerResponse `json:"customer"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

// refreshResponse keeps the token at the top level, next to success.
type refreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
