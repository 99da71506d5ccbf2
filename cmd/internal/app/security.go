package app

import (
	"errors"

	"carepass/cmd/security/token"
)

// minTokenHMACKeyBytes is the smallest accepted HMAC-SHA256 key, measured
// in bytes because the key is used raw.
const minTokenHMACKeyBytes = 32

// ValidateSecurityConfig enforces the token hashing policy at startup and
// returns the refresh token hasher the ledger must use for the whole
// process lifetime.
//
// Without CAREPASS_REQUIRE_TOKEN_HMAC a missing key falls back to SHA-256,
// but a present key that is too short is still rejected.
func ValidateSecurityConfig(cfg Config) (token.RefreshHasher, error) {
	h, err := token.RefreshHasherFromEnv(cfg.RequireTokenHMAC, minTokenHMACKeyBytes)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrHMACKeyMissing):
		return token.RefreshHasher{}, errors.New("security policy: CAREPASS_REQUIRE_TOKEN_HMAC=true but CAREPASS_TOKEN_HMAC_KEY is missing")
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.RefreshHasher{}, errors.New("security policy: CAREPASS_TOKEN_HMAC_KEY is too short (min 32 bytes)")
	default:
		return token.RefreshHasher{}, err
	}

	if cfg.RequireTokenHMAC && !h.HMAC() {
		return token.RefreshHasher{}, errors.New("security policy: CAREPASS_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
