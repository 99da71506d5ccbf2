package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads path into the process environment. Variables that are
// already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ParseEnv fills dst from its env struct tags.
func ParseEnv(dst any) error {
	if err := env.Parse(dst); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
