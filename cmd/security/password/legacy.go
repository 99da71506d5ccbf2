package password

import (
	"crypto/sha1" // #nosec G505 -- only for verifying imported pbkdf2:sha1 hashes.
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Werkzeug's generate_password_hash defaults used when a method string omits them.
const (
	werkzeugPBKDF2DefaultIter = 600000
	werkzeugScryptKeyLen      = 64

	maxPBKDF2Iterations = 2_000_000
	maxScryptN          = 1 << 20
	maxScryptR          = 32
	maxScryptP          = 16
)

type hashFormat int

const (
	formatUnknown hashFormat = iota
	formatArgon2id
	formatWerkzeugPBKDF2
	formatWerkzeugScrypt
	formatBcrypt
)

func detectFormat(encoded string) hashFormat {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return formatArgon2id
	case strings.HasPrefix(encoded, "pbkdf2:"):
		return formatWerkzeugPBKDF2
	case strings.HasPrefix(encoded, "scrypt:"):
		return formatWerkzeugScrypt
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return formatBcrypt
	default:
		return formatUnknown
	}
}

// splitWerkzeug splits "method$salt$hexhash".
func splitWerkzeug(encoded string) (method []string, salt []byte, want []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[1] == "" {
		return nil, nil, nil, ErrInvalidHash
	}
	want, err = hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}
	return strings.Split(parts[0], ":"), []byte(parts[1]), want, nil
}

func verifyWerkzeugPBKDF2(encoded, plain string) (bool, error) {
	method, salt, want, err := splitWerkzeug(encoded)
	if err != nil {
		return false, err
	}
	if len(method) < 2 || len(method) > 3 {
		return false, ErrInvalidHash
	}

	var h func() hash.Hash
	switch method[1] {
	case "sha256":
		h = sha256.New
	case "sha512":
		h = sha512.New
	case "sha1":
		h = sha1.New
	default:
		return false, ErrInvalidHash
	}

	iter := werkzeugPBKDF2DefaultIter
	if len(method) == 3 {
		n, err := strconv.Atoi(method[2])
		if err != nil || n <= 0 || n > maxPBKDF2Iterations {
			return false, ErrInvalidHash
		}
		iter = n
	}

	got := pbkdf2.Key([]byte(plain), salt, iter, len(want), h)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func verifyWerkzeugScrypt(encoded, plain string) (bool, error) {
	method, salt, want, err := splitWerkzeug(encoded)
	if err != nil {
		return false, err
	}

	n, r, p := 1<<15, 8, 1
	if len(method) == 4 {
		var errs [3]error
		n, errs[0] = strconv.Atoi(method[1])
		r, errs[1] = strconv.Atoi(method[2])
		p, errs[2] = strconv.Atoi(method[3])
		if errors.Join(errs[:]...) != nil {
			return false, ErrInvalidHash
		}
	} else if len(method) != 1 {
		return false, ErrInvalidHash
	}
	if n <= 1 || n > maxScryptN || r <= 0 || r > maxScryptR || p <= 0 || p > maxScryptP {
		return false, ErrInvalidHash
	}
	if len(want) != werkzeugScryptKeyLen {
		return false, ErrInvalidHash
	}

	got, err := scrypt.Key([]byte(plain), salt, n, r, p, len(want))
	if err != nil {
		return false, ErrInvalidHash
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func verifyBcrypt(encoded, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
