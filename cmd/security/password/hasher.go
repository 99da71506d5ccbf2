package password

import (
	"crypto/rand"
	"fmt"
)

// Hasher is the opaque hashing service used by the account layer.
// Hash always produces Argon2id; Verify understands every format enabled in Config.
type Hasher struct {
	cfg Config
}

// NewHasher returns a Hasher bound to cfg.
func NewHasher(cfg Config) *Hasher {
	return &Hasher{cfg: cfg}
}

// Config returns the effective configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Hash validates plain against the policy and hashes it.
func (h *Hasher) Hash(plain string) (string, error) {
	return h.cfg.Hash(plain)
}

// DummyHash returns an Argon2id hash of random bytes with the current cost
// parameters. Verifying against it costs the same as a real login, whatever
// the length policy says.
func (h *Hasher) DummyHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("dummy secret: %w", err)
	}
	return h.cfg.derive(secret)
}

// Verify checks plain against encoded.
//
// needsRehash is true for a matching password whose hash is a legacy format
// or an Argon2id hash with weaker parameters than configured. Malformed or
// disabled formats return ErrInvalidHash.
func (h *Hasher) Verify(encoded, plain string) (ok bool, needsRehash bool, err error) {
	switch detectFormat(encoded) {
	case formatArgon2id:
		ok, err = h.cfg.Verify(encoded, plain)
		if err != nil || !ok {
			return false, false, err
		}
		return true, h.cfg.NeedsRehash(encoded), nil

	case formatWerkzeugPBKDF2:
		if !h.cfg.Legacy.Werkzeug {
			return false, false, ErrInvalidHash
		}
		ok, err = verifyWerkzeugPBKDF2(encoded, plain)

	case formatWerkzeugScrypt:
		if !h.cfg.Legacy.Werkzeug {
			return false, false, ErrInvalidHash
		}
		ok, err = verifyWerkzeugScrypt(encoded, plain)

	case formatBcrypt:
		if !h.cfg.Legacy.Bcrypt {
			return false, false, ErrInvalidHash
		}
		ok, err = verifyBcrypt(encoded, plain)

	default:
		return false, false, ErrInvalidHash
	}

	if err != nil || !ok {
		return false, false, err
	}
	return true, true, nil
}
