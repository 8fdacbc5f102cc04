package config

import (
	"strings"
	"testing"
	"time"
)

func setValidEnv(t *testing.T) {
	t.Setenv("OPSDESK_PG_DSN", "postgres://localhost/opsdesk")
	t.Setenv("OPSDESK_AUTH_SECRET", "test-secret")
	t.Setenv("OPSDESK_VAULT_KEY", strings.Repeat("ab", 32))
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.TokenTTL != 8*time.Hour {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
	key, err := cfg.VaultKey()
	if err != nil {
		t.Fatalf("VaultKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}
}

func TestLoadMissingSecret(t *testing.T) {
	setValidEnv(t)
	t.Setenv("OPSDESK_AUTH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing auth secret")
	}
}

func TestLoadMissingDSN(t *testing.T) {
	setValidEnv(t)
	t.Setenv("OPSDESK_PG_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing dsn")
	}
}

func TestLoadBadVaultKey(t *testing.T) {
	setValidEnv(t)

	for name, value := range map[string]string{
		"empty":     "",
		"not hex":   "zz",
		"too short": "abcd",
	} {
		t.Setenv("OPSDESK_VAULT_KEY", value)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for %s vault key", name)
		}
	}
}
