package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WELLNESS_API_URL", "WELLNESS_TOKEN_FILE", "WELLNESS_DB",
		"WELLNESS_ADDR", "WELLNESS_LOG_LEVEL", "WELLNESS_EXPORT_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("expected BaseURL=http://localhost:5000/api, got %s", cfg.API.BaseURL)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("expected Addr=:5000, got %s", cfg.Server.Addr)
	}
	if cfg.Export.DateLayout != "1/2/2006" {
		t.Errorf("expected DateLayout=1/2/2006, got %s", cfg.Export.DateLayout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://wellness.example.com/api"
	cfg.Server.TokenTTL = "24h"
	cfg.Export.ChromePath = "/usr/bin/chromium"
	cfg.Logging.Level = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://gw:9000/api\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.API.BaseURL != "http://gw:9000/api" {
		t.Errorf("expected BaseURL from file, got %s", loaded.API.BaseURL)
	}
	if loaded.Server.Addr != ":5000" {
		t.Errorf("expected default Addr, got %s", loaded.Server.Addr)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WELLNESS_API_URL", "http://env:1234/api")
	t.Setenv("WELLNESS_DB", "/tmp/env.db")
	t.Setenv("WELLNESS_ADDR", ":8080")
	t.Setenv("WELLNESS_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "http://env:1234/api" {
		t.Errorf("expected BaseURL from env, got %s", cfg.API.BaseURL)
	}
	if cfg.Server.DatabasePath != "/tmp/env.db" {
		t.Errorf("expected DatabasePath from env, got %s", cfg.Server.DatabasePath)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected Addr from env, got %s", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected Level from env, got %s", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = " "
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty base url")
	}

	cfg = DefaultConfig()
	cfg.Server.TokenTTL = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad token ttl")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad level")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.GetAPITimeout(); got != 10*time.Second {
		t.Errorf("GetAPITimeout = %v, want 10s", got)
	}
	cfg.API.Timeout = "nonsense"
	if got := cfg.GetAPITimeout(); got != 10*time.Second {
		t.Errorf("GetAPITimeout fallback = %v, want 10s", got)
	}

	if got := cfg.GetTokenTTL(); got != 720*time.Hour {
		t.Errorf("GetTokenTTL = %v, want 720h", got)
	}
	cfg.Server.TokenTTL = ""
	if got := cfg.GetTokenTTL(); got != 0 {
		t.Errorf("GetTokenTTL empty = %v, want 0", got)
	}
}
