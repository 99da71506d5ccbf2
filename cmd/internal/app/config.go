package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"CAREPASS_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"CAREPASS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CAREPASS_LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"CAREPASS_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"CAREPASS_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"CAREPASS_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"CAREPASS_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"CAREPASS_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"CAREPASS_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DBDriver    string `env:"CAREPASS_DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"CAREPASS_DATABASE_URL"`
	DBSchema    string `env:"CAREPASS_DB_SCHEMA" envDefault:"public"`
	SQLitePath  string `env:"CAREPASS_SQLITE_PATH" envDefault:"carepass.db"`
	DBMaxConns  int32  `env:"CAREPASS_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"CAREPASS_DB_MIN_CONNS" envDefault:"0"`

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `env:"CAREPASS_DB_AUTO_MIGRATE" envDefault:"true"`

	MetricsEnabled bool   `env:"CAREPASS_METRICS_ENABLED" envDefault:"true"`
	OTelEnabled    bool   `env:"CAREPASS_OTEL_ENABLED" envDefault:"true"`
	OTelEndpoint   string `env:"CAREPASS_OTEL_ENDPOINT"`

	// Security policy:
	// If true, CAREPASS_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and refresh-token hashing is HMAC-based.
	RequireTokenHMAC bool `env:"CAREPASS_REQUIRE_TOKEN_HMAC" envDefault:"false"`
}

// LoadConfig loads Config from the environment, after merging envFile
// (if it exists) into it.
func LoadConfig(envFile string) (Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("CAREPASS_DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("CAREPASS_SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CAREPASS_DB_DRIVER %q", c.DBDriver))
	}
	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		errs = append(errs, errors.New("CAREPASS_DB_MIN_CONNS must be between 0 and CAREPASS_DB_MAX_CONNS"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("app config: %w", errors.Join(errs...))
	}
	return nil
}
