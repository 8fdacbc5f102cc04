package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all process-level settings. Everything the trust core needs
// is validated here, at startup; no component reads the environment lazily.
type Config struct {
	Addr        string        `env:"OPSDESK_ADDR" envDefault:":8080"`
	PostgresDSN string        `env:"OPSDESK_PG_DSN"`
	AuthSecret  string        `env:"OPSDESK_AUTH_SECRET"`
	TokenTTL    time.Duration `env:"OPSDESK_TOKEN_TTL" envDefault:"8h"`
	VaultKeyHex string        `env:"OPSDESK_VAULT_KEY"`

	RateLimitPerSecond int `env:"OPSDESK_RATE_LIMIT_PER_SECOND" envDefault:"20"`
	RateLimitBurst     int `env:"OPSDESK_RATE_LIMIT_BURST" envDefault:"40"`
}

// Load parses configuration from the environment and validates it. A missing
// signing secret, vault key or database DSN is a fatal startup condition.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.PostgresDSN) == "" {
		return errors.New("config: OPSDESK_PG_DSN is required")
	}
	if strings.TrimSpace(c.AuthSecret) == "" {
		return errors.New("config: OPSDESK_AUTH_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: OPSDESK_TOKEN_TTL must be positive")
	}
	if _, err := c.VaultKey(); err != nil {
		return err
	}
	return nil
}

// VaultKey decodes the hex-encoded symmetric encryption key. The key must be
// exactly 32 bytes (AES-256).
func (c Config) VaultKey() ([]byte, error) {
	raw := strings.TrimSpace(c.VaultKeyHex)
	if raw == "" {
		return nil, errors.New("config: OPSDESK_VAULT_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: OPSDESK_VAULT_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: OPSDESK_VAULT_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
