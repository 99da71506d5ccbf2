package authapi

import (
	"fmt"
	"regexp"

	"github.com/caarlos0/env/v11"
)

// Config controls the customer HTTP API.
type Config struct {
	// MaxBodyBytes caps request bodies before decoding.
	MaxBodyBytes int64 `env:"CAREPASS_AUTH_MAX_BODY_BYTES" envDefault:"1048576"`

	// Versions lists the mounted /api/<version>/customers prefixes.
	Versions []string `env:"CAREPASS_API_VERSIONS" envSeparator:"," envDefault:"v1,v2,v3"`
}

// DefaultConfig returns the defaults used when the environment is empty.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20,
		Versions:     []string{"v1", "v2", "v3"},
	}
}

var versionRe = regexp.MustCompile(`^v[0-9]+$`)

// LoadConfigFromEnv loads API config from environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("authapi config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configured limits and version names.
func (c Config) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("authapi config: CAREPASS_AUTH_MAX_BODY_BYTES must be positive")
	}
	if len(c.Versions) == 0 {
		return fmt.Errorf("authapi config: at least one API version is required")
	}
	for _, v := range c.Versions {
		if !versionRe.MatchString(v) {
			return fmt.Errorf("authapi config: invalid API version %q", v)
		}
	}
	return nil
}
