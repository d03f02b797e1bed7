package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	toml := `
log_level = "debug"

[storage]
backend = "local"
root_dir = "/var/lib/orderbook"

[feed]
ws_url = "wss://example.invalid/ws"
`
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Storage.RootDir != "/var/lib/orderbook" {
		t.Errorf("root_dir = %q", cfg.Storage.RootDir)
	}
	// Untouched defaults should survive the merge.
	if cfg.Service.SnapshotInterval != 1000 {
		t.Errorf("snapshot_interval = %d, want default 1000", cfg.Service.SnapshotInterval)
	}
	if cfg.Discovery.GammaHost != "https://gamma-api.polymarket.com" {
		t.Errorf("gamma_host = %q", cfg.Discovery.GammaHost)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ORDERBOOK_LOG_LEVEL", "warn")
	t.Setenv("ORDERBOOK_SERVICE_WRITE_BUFFER_SIZE", "250")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %q, want env override warn", cfg.LogLevel)
	}
	if cfg.Service.WriteBufferSize != 250 {
		t.Errorf("write_buffer_size = %d, want env override 250", cfg.Service.WriteBufferSize)
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "nfs"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestValidate_RequiresBucketForS3Backend(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "s3"
	cfg.Storage.S3.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing s3 bucket")
	}
}

func TestDefaults_DoesNotEnableAuditByItself(t *testing.T) {
	cfg := Defaults()
	if cfg.Audit.Postgres.DSN != "" || cfg.Audit.Postgres.Host != "" {
		t.Fatalf("Defaults() must leave both dsn and host empty so audit stays slog-only out of the box, got dsn=%q host=%q",
			cfg.Audit.Postgres.DSN, cfg.Audit.Postgres.Host)
	}
}

func TestRedactedConfig_DoesNotMutateOriginal(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.S3.SecretKey = "top-secret"
	cfg.Audit.Postgres.Password = "hunter2"

	redacted := RedactedConfig(&cfg)

	if redacted.Storage.S3.SecretKey != "***" {
		t.Errorf("secret_key not redacted: %q", redacted.Storage.S3.SecretKey)
	}
	if cfg.Storage.S3.SecretKey != "top-secret" {
		t.Errorf("original config mutated: %q", cfg.Storage.S3.SecretKey)
	}
	if redacted.Audit.Postgres.Password != "***" {
		t.Errorf("postgres password not redacted: %q", redacted.Audit.Postgres.Password)
	}
}
