package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const (
	werkzeugPBKDF2Hash = "pbkdf2:sha256:1000$saltsalt$3d4e79cccf069e89d29cf0e14b8f927b939809734bd8796c42145a88f419b9fd"
	werkzeugScryptHash = "scrypt:16384:8:1$saltsalt$04f9d3585f08c44fac20d866d4e165d298d73d75f0d6ffe76fce36a5ca664e09a55db37ac9958d959f186152f012151c3ef0c092d325cd92c5146faeeb506edc"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHasher_Argon2idRoundTrip(t *testing.T) {
	h := NewHasher(fastConfig())

	enc, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, rehash, err := h.Verify(enc, "correct horse")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if rehash {
		t.Fatalf("fresh hash should not need rehash")
	}

	ok, _, err = h.Verify(enc, "wrong horse")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHasher_WeakerArgon2idNeedsRehash(t *testing.T) {
	weak := fastConfig()
	enc, err := weak.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := fastConfig()
	stronger.Params.Iterations = 2
	ok, rehash, err := NewHasher(stronger).Verify(enc, "correct horse")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if !rehash {
		t.Fatalf("expected rehash for weaker params")
	}
}

func TestHasher_WerkzeugPBKDF2(t *testing.T) {
	h := NewHasher(fastConfig())

	ok, rehash, err := h.Verify(werkzeugPBKDF2Hash, "secretpass")
	if err != nil || !ok || !rehash {
		t.Fatalf("expected legacy match with rehash, ok=%v rehash=%v err=%v", ok, rehash, err)
	}

	ok, rehash, err = h.Verify(werkzeugPBKDF2Hash, "secretpasS")
	if err != nil || ok || rehash {
		t.Fatalf("expected mismatch, ok=%v rehash=%v err=%v", ok, rehash, err)
	}
}

func TestHasher_WerkzeugScrypt(t *testing.T) {
	h := NewHasher(fastConfig())

	ok, rehash, err := h.Verify(werkzeugScryptHash, "secretpass")
	if err != nil || !ok || !rehash {
		t.Fatalf("expected legacy match with rehash, ok=%v rehash=%v err=%v", ok, rehash, err)
	}
}

func TestHasher_Bcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("secretpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	h := NewHasher(fastConfig())
	ok, rehash, err := h.Verify(string(raw), "secretpass")
	if err != nil || !ok || !rehash {
		t.Fatalf("expected bcrypt match with rehash, ok=%v rehash=%v err=%v", ok, rehash, err)
	}
	ok, _, err = h.Verify(string(raw), "nope")
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHasher_LegacyDisabled(t *testing.T) {
	cfg := fastConfig()
	cfg.Legacy = LegacyPolicy{}

	_, _, err := NewHasher(cfg).Verify(werkzeugPBKDF2Hash, "secretpass")
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestHasher_MalformedLegacy(t *testing.T) {
	h := NewHasher(fastConfig())

	cases := []string{
		"pbkdf2:md5:1000$salt$00ff",
		"pbkdf2:sha256:abc$salt$00ff",
		"pbkdf2:sha256:1000$salt$zz",
		"pbkdf2:sha256:1000$$00ff",
		"scrypt:99999999:8:1$salt$00ff",
		"scrypt:16384:8:1$salt$00ff",
		"plain$text",
		"",
	}
	for _, enc := range cases {
		if _, _, err := h.Verify(enc, "secretpass"); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", enc, err)
		}
	}
}
