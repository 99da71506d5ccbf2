package password

import "errors"

// Policy failures surface to customers as field validation errors.
var (
	ErrPasswordTooShort = errors.New("password: below minimum length")
	ErrPasswordTooLong  = errors.New("password: above maximum length")
	ErrWeakPassword     = errors.New("password: trivially guessable")
)

// ErrInvalidHash is returned for stored hashes that are malformed, use a
// disabled legacy format, or carry out-of-bounds Argon2id parameters.
var ErrInvalidHash = errors.New("password: unrecognized or invalid stored hash")
