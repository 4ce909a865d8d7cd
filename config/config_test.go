package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Store.Kind != "sqlite" || cfg.Store.Path == "" {
		t.Errorf("default store = %+v, want sqlite with a path", cfg.Store)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.WaitTimeout != 5*time.Minute {
		t.Errorf("WaitTimeout = %v, want 5m", cfg.WaitTimeout)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store:
  kind: memory
log_level: debug
default_priority: high
wait_timeout: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Kind != "memory" {
		t.Errorf("Store.Kind = %q, want memory", cfg.Store.Kind)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.DefaultPriority != "high" {
		t.Errorf("DefaultPriority = %q, want high", cfg.DefaultPriority)
	}
	if cfg.WaitTimeout != 30*time.Second {
		t.Errorf("WaitTimeout = %v, want 30s", cfg.WaitTimeout)
	}
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	path := writeConfig(t, `log_level: warn`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Kind != "sqlite" {
		t.Errorf("unset store should keep the default, got %q", cfg.Store.Kind)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}

	bad := writeConfig(t, `store: {kind: redis}`)
	if _, err := Load(bad); err == nil {
		t.Error("Load with unknown store kind should fail")
	}

	noPath := writeConfig(t, `store: {kind: sqlite, path: ""}`)
	if _, err := Load(noPath); err == nil {
		t.Error("Load with sqlite and empty path should fail")
	}
}
