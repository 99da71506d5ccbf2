package token

import "errors"

// ErrHMACKeyMissing means CAREPASS_TOKEN_HMAC_KEY is unset or blank.
var ErrHMACKeyMissing = errors.New("token: refresh digest HMAC key not configured")

// ErrHMACKeyTooShort means the configured key is below the required length.
var ErrHMACKeyTooShort = errors.New("token: refresh digest HMAC key too short")
