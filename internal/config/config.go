// Package config defines the top-level configuration for orderbookd and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ORDERBOOK_* environment
// variables.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Storage  StorageConfig  `toml:"storage"`
	Cache    CacheConfig    `toml:"cache"`
	Audit    AuditConfig    `toml:"audit"`
	Feed     FeedConfig     `toml:"feed"`
	Discovery DiscoveryConfig `toml:"discovery"`
	LogLevel string         `toml:"log_level"`
}

// ServiceConfig holds OrderBookService tuning parameters (spec §6.3).
type ServiceConfig struct {
	SnapshotInterval uint64 `toml:"snapshot_interval"`
	WriteBufferSize  int    `toml:"write_buffer_size"`
}

// StorageConfig selects and configures the event log / snapshot backend.
type StorageConfig struct {
	// Backend selects the filesystem implementation: "local" or "s3".
	Backend string      `toml:"backend"`
	RootDir string      `toml:"root_dir"`
	S3      S3Config    `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// CacheConfig holds the optional read-through Redis projection cache.
// When Redis.Addr is empty, the cache is disabled and queries only ever
// hit the in-process projection map.
type CacheConfig struct {
	Redis RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// AuditConfig holds the optional Postgres-backed durable audit trail.
// When Postgres.DSN (and Host) are both empty, audit logging is slog-only.
type AuditConfig struct {
	Postgres PostgresConfig `toml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
	RunMigrations bool  `toml:"run_migrations"`
}

// FeedConfig holds Polymarket WebSocket feed adapter settings. Only WsURL
// is passed to the adapter; ReconnectBackoff is loaded but not read by it,
// and the adapter uses its own built-in reconnect delays.
type FeedConfig struct {
	WsURL             string   `toml:"ws_url"`
	ReconnectBackoff  duration `toml:"reconnect_backoff"`
}

// DiscoveryConfig holds the Gamma API market discovery poller settings.
type DiscoveryConfig struct {
	Enabled   bool     `toml:"enabled"`
	GammaHost string   `toml:"gamma_host"`
	Interval  duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Service: ServiceConfig{
			SnapshotInterval: 1000,
			WriteBufferSize:  500,
		},
		Storage: StorageConfig{
			Backend: "local",
			RootDir: "./data",
			S3: S3Config{
				Region:         "us-east-1",
				UseSSL:         true,
				ForcePathStyle: true,
			},
		},
		Cache: CacheConfig{
			Redis: RedisConfig{
				DB:         0,
				PoolSize:   20,
				MaxRetries: 3,
				TLSEnabled: false,
			},
		},
		// Host and DSN are left empty: audit is opt-in (see AuditConfig's
		// doc comment). These are the parameters applied once an operator
		// sets audit.postgres.host or audit.postgres.dsn.
		Audit: AuditConfig{
			Postgres: PostgresConfig{
				Port:          5432,
				Database:      "orderbook",
				User:          "postgres",
				SSLMode:       "disable",
				PoolMaxConns:  10,
				PoolMinConns:  2,
				RunMigrations: true,
			},
		},
		Feed: FeedConfig{
			WsURL:            "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ReconnectBackoff: duration{2 * time.Second},
		},
		Discovery: DiscoveryConfig{
			Enabled:   true,
			GammaHost: "https://gamma-api.polymarket.com",
			Interval:  duration{5 * time.Minute},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBackends enumerates the accepted values for Storage.Backend.
var validBackends = map[string]bool{
	"local": true,
	"s3":    true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Service.WriteBufferSize < 1 {
		errs = append(errs, "service: write_buffer_size must be >= 1")
	}

	// Storage
	backend := strings.ToLower(c.Storage.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: local, s3)", c.Storage.Backend))
	}
	switch backend {
	case "local":
		if c.Storage.RootDir == "" {
			errs = append(errs, "storage: root_dir must not be empty for backend=local")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, "storage.s3: bucket must not be empty for backend=s3")
		}
		if c.Storage.S3.Region == "" {
			errs = append(errs, "storage.s3: region must not be empty for backend=s3")
		}
	}

	// Cache — no validation beyond defaults; empty addr just disables it.
	if c.Cache.Redis.Addr != "" && c.Cache.Redis.PoolSize < 1 {
		errs = append(errs, "cache.redis: pool_size must be >= 1 when addr is set")
	}

	// Audit — no validation beyond defaults; empty dsn/host just disables it.
	if c.Audit.Postgres.DSN == "" && c.Audit.Postgres.Host != "" {
		if c.Audit.Postgres.Port <= 0 || c.Audit.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("audit.postgres: port must be 1-65535, got %d", c.Audit.Postgres.Port))
		}
		if c.Audit.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "audit.postgres: pool_max_conns must be >= 1")
		}
		if c.Audit.Postgres.PoolMinConns > c.Audit.Postgres.PoolMaxConns {
			errs = append(errs, "audit.postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Feed
	if c.Feed.WsURL == "" {
		errs = append(errs, "feed: ws_url must not be empty")
	}

	// Discovery
	if c.Discovery.Enabled && c.Discovery.GammaHost == "" {
		errs = append(errs, "discovery: gamma_host must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
