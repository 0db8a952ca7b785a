package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
push:
  vapid_public_key: pub
  vapid_private_key: priv
jwt:
  secret: s3cret
app:
  base_url: https://notify.example.com/
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Push.TTL != 86400 {
		t.Errorf("Expected default TTL 86400, got %d", cfg.Push.TTL)
	}
	if cfg.Webhooks.LogRetention != 30*24*time.Hour {
		t.Errorf("Expected default log retention, got %v", cfg.Webhooks.LogRetention)
	}
	if cfg.App.BaseURL != "https://notify.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.App.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "push:\n  vapid_public_key: pub\n")
	t.Setenv("PUSH_VAPID_PRIVATE_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Push.VAPIDPrivateKey != "from-env" {
		t.Errorf("Expected env override, got %q", cfg.Push.VAPIDPrivateKey)
	}
}

func TestValidate_MissingKeys(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "x"}, Database: DatabaseConfig{URL: ":memory:"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing VAPID keys")
	}
}
