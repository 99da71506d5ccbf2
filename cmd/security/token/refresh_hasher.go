package token

// RefreshHasher is a fixed-mode refresh token digest, resolved once at startup
// so that an env change mid-process cannot split the ledger across two modes.
type RefreshHasher struct {
	key []byte
}

// NewRefreshHasher returns an HMAC hasher for a non-empty key and a plain
// SHA-256 hasher otherwise.
func NewRefreshHasher(key []byte) RefreshHasher {
	if len(key) == 0 {
		return RefreshHasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return RefreshHasher{key: k}
}

// RefreshHasherFromEnv resolves the mode from CAREPASS_TOKEN_HMAC_KEY.
// With require=true a missing or short key is an error.
func RefreshHasherFromEnv(require bool, minBytes int) (RefreshHasher, error) {
	key, err := HMACKeyFromEnv(minBytes)
	switch {
	case err == nil:
		return NewRefreshHasher(key), nil
	case err == ErrHMACKeyMissing && !require:
		return RefreshHasher{}, nil
	default:
		return RefreshHasher{}, err
	}
}

// HMAC reports whether the hasher is keyed.
func (h RefreshHasher) HMAC() bool { return len(h.key) > 0 }

// Hash returns the 64-char hex digest of raw.
func (h RefreshHasher) Hash(raw string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(raw)
	}
	return HashHMACSHA256Hex(raw, h.key)
}
