package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"SERVER_HOST", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_IDLE_TIMEOUT",
		"SERVER_REQUEST_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_LIFETIME",
		"IMPORT_MAX_FILE_SIZE", "IMPORT_PREVIEW_ROWS", "IMPORT_WARNING_LIMIT",
		"REGISTRY_PATH", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/courses")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Minute {
		t.Errorf("request timeout = %v, want 5m", cfg.Server.RequestTimeout)
	}
	if cfg.Import.MaxFileSize != 52428800 {
		t.Errorf("max file size = %d", cfg.Import.MaxFileSize)
	}
	if cfg.Import.PreviewRows != 5 || cfg.Import.WarningLimit != 20 {
		t.Errorf("import = %+v", cfg.Import)
	}
	if cfg.Registry.Path != "fields.json" {
		t.Errorf("registry path = %q", cfg.Registry.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/courses")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("IMPORT_PREVIEW_ROWS", "10")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Import.PreviewRows != 10 {
		t.Errorf("preview rows = %d, want 10", cfg.Import.PreviewRows)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %v, want mention of DATABASE_URL", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/courses")
	t.Setenv("SERVER_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 0
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "text"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"DATABASE_URL", "SERVER_PORT", "LOG_LEVEL", "IMPORT_MAX_FILE_SIZE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %s: %v", want, err)
		}
	}
}

func TestAddr(t *testing.T) {
	c := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := c.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", got)
	}
	c.Host = ""
	if got := c.Addr(); got != ":8080" {
		t.Errorf("Addr = %q", got)
	}
}
