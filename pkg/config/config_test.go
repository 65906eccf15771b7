package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rundeck/pkg/connection"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "localhost" {
		t.Errorf("expected default server localhost, got %q", cfg.Server)
	}
	if cfg.Port != 4440 {
		t.Errorf("expected default port 4440, got %d", cfg.Port)
	}
	if cfg.APIVersion != connection.SupportedAPIVersion {
		t.Errorf("expected default api version %d, got %d", connection.SupportedAPIVersion, cfg.APIVersion)
	}
	if !cfg.Strict {
		t.Error("expected strict mode by default")
	}
}

func TestLoad_FileThenEnvLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rundeck.yaml")
	yaml := "server: rundeck.internal\nprotocol: https\nport: 443\napi_token: from-file\ntimeout: 10s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Env overrides the file.
	t.Setenv("RUNDECK_API_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "rundeck.internal" {
		t.Errorf("expected server from file, got %q", cfg.Server)
	}
	if cfg.Protocol != "https" || cfg.Port != 443 {
		t.Errorf("expected https:443 from file, got %s:%d", cfg.Protocol, cfg.Port)
	}
	if cfg.APIToken != "from-env" {
		t.Errorf("expected env to override file token, got %q", cfg.APIToken)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s from file, got %v", cfg.Timeout)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing config file should fall back to defaults, got %v", err)
	}
}

func TestLoad_SecretFileFallback(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "token")
	if err := os.WriteFile(secret, []byte("sekrit\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("RUNDECK_API_TOKEN_FILE", secret)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIToken != "sekrit" {
		t.Errorf("expected token from secret file, got %q", cfg.APIToken)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("RUNDECK_TEST_STR", "value")

	if got := GetEnv("RUNDECK_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv() = %q", got)
	}
	if got := GetEnv("RUNDECK_TEST_ABSENT", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() fallback = %q", got)
	}
}

func TestLoad_EnvDuration(t *testing.T) {
	t.Setenv("RUNDECK_TIMEOUT", "7s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("expected timeout 7s from env, got %v", cfg.Timeout)
	}
}
