package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinJWTSecretBytes is the smallest accepted HS256 signing secret.
const MinJWTSecretBytes = 32

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string `env:"CAREPASS_AUTH_ISSUER" envDefault:"carepass"`

	// JWTSecret signs access and refresh tokens (HS256).
	JWTSecret string `env:"CAREPASS_JWT_SECRET"`

	AccessTokenTTL  time.Duration `env:"CAREPASS_AUTH_ACCESS_TTL"  envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"CAREPASS_AUTH_REFRESH_TTL" envDefault:"720h"`

	// ClockSkew is the leeway applied to exp/iat during verification.
	ClockSkew time.Duration `env:"CAREPASS_AUTH_CLOCK_SKEW" envDefault:"0s"`

	// RotateRefreshTokens issues a new refresh token on every refresh and
	// revokes the presented one. Presenting a rotated token revokes all of
	// the customer's refresh tokens.
	RotateRefreshTokens bool `env:"CAREPASS_AUTH_ROTATE_REFRESH" envDefault:"false"`

	// HideDeactivated makes login on a deactivated account fail exactly like a
	// wrong password. When false, a correct password on a deactivated account
	// yields ErrAccountDeactivated.
	HideDeactivated bool `env:"CAREPASS_AUTH_HIDE_DEACTIVATED" envDefault:"true"`

	// MaxTokenBytes bounds presented tokens before any parsing.
	MaxTokenBytes int `env:"CAREPASS_AUTH_MAX_TOKEN_BYTES" envDefault:"4096"`
}

// DefaultConfig returns the documented defaults without a signing secret.
func DefaultConfig() Config {
	return Config{
		Issuer:          "carepass",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		HideDeactivated: true,
		MaxTokenBytes:   4096,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - CAREPASS_JWT_SECRET (>= 32 bytes)
//
// Returns an error wrapping ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Issuer) == "" {
		errs = append(errs, errors.New("issuer is empty"))
	}
	if len(c.JWTSecret) < MinJWTSecretBytes {
		errs = append(errs, fmt.Errorf("CAREPASS_JWT_SECRET must be at least %d bytes", MinJWTSecretBytes))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("refresh token ttl must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token ttl must not be shorter than access token ttl"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("clock skew must not be negative"))
	}
	if c.MaxTokenBytes < 256 {
		errs = append(errs, errors.New("max token bytes must be at least 256"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return nil
}
