package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORDERBOOK_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORDERBOOK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Service ──
	setUint64(&cfg.Service.SnapshotInterval, "ORDERBOOK_SERVICE_SNAPSHOT_INTERVAL")
	setInt(&cfg.Service.WriteBufferSize, "ORDERBOOK_SERVICE_WRITE_BUFFER_SIZE")

	// ── Storage ──
	setStr(&cfg.Storage.Backend, "ORDERBOOK_STORAGE_BACKEND")
	setStr(&cfg.Storage.RootDir, "ORDERBOOK_STORAGE_ROOT_DIR")
	setStr(&cfg.Storage.S3.Endpoint, "ORDERBOOK_STORAGE_S3_ENDPOINT")
	setStr(&cfg.Storage.S3.Region, "ORDERBOOK_STORAGE_S3_REGION")
	setStr(&cfg.Storage.S3.Bucket, "ORDERBOOK_STORAGE_S3_BUCKET")
	setStr(&cfg.Storage.S3.AccessKey, "ORDERBOOK_STORAGE_S3_ACCESS_KEY")
	setStr(&cfg.Storage.S3.SecretKey, "ORDERBOOK_STORAGE_S3_SECRET_KEY")
	setBool(&cfg.Storage.S3.UseSSL, "ORDERBOOK_STORAGE_S3_USE_SSL")
	setBool(&cfg.Storage.S3.ForcePathStyle, "ORDERBOOK_STORAGE_S3_FORCE_PATH_STYLE")

	// ── Cache (Redis) ──
	setStr(&cfg.Cache.Redis.Addr, "ORDERBOOK_CACHE_REDIS_ADDR")
	setStr(&cfg.Cache.Redis.Password, "ORDERBOOK_CACHE_REDIS_PASSWORD")
	setInt(&cfg.Cache.Redis.DB, "ORDERBOOK_CACHE_REDIS_DB")
	setInt(&cfg.Cache.Redis.PoolSize, "ORDERBOOK_CACHE_REDIS_POOL_SIZE")
	setInt(&cfg.Cache.Redis.MaxRetries, "ORDERBOOK_CACHE_REDIS_MAX_RETRIES")
	setBool(&cfg.Cache.Redis.TLSEnabled, "ORDERBOOK_CACHE_REDIS_TLS_ENABLED")

	// ── Audit (Postgres) ──
	setStr(&cfg.Audit.Postgres.DSN, "ORDERBOOK_AUDIT_POSTGRES_DSN")
	setStr(&cfg.Audit.Postgres.Host, "ORDERBOOK_AUDIT_POSTGRES_HOST")
	setInt(&cfg.Audit.Postgres.Port, "ORDERBOOK_AUDIT_POSTGRES_PORT")
	setStr(&cfg.Audit.Postgres.Database, "ORDERBOOK_AUDIT_POSTGRES_DATABASE")
	setStr(&cfg.Audit.Postgres.User, "ORDERBOOK_AUDIT_POSTGRES_USER")
	setStr(&cfg.Audit.Postgres.Password, "ORDERBOOK_AUDIT_POSTGRES_PASSWORD")
	setStr(&cfg.Audit.Postgres.SSLMode, "ORDERBOOK_AUDIT_POSTGRES_SSL_MODE")
	setInt(&cfg.Audit.Postgres.PoolMaxConns, "ORDERBOOK_AUDIT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Audit.Postgres.PoolMinConns, "ORDERBOOK_AUDIT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Audit.Postgres.RunMigrations, "ORDERBOOK_AUDIT_POSTGRES_RUN_MIGRATIONS")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "ORDERBOOK_FEED_WS_URL")
	setDuration(&cfg.Feed.ReconnectBackoff, "ORDERBOOK_FEED_RECONNECT_BACKOFF")

	// ── Discovery ──
	setBool(&cfg.Discovery.Enabled, "ORDERBOOK_DISCOVERY_ENABLED")
	setStr(&cfg.Discovery.GammaHost, "ORDERBOOK_DISCOVERY_GAMMA_HOST")
	setDuration(&cfg.Discovery.Interval, "ORDERBOOK_DISCOVERY_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ORDERBOOK_LOG_LEVEL")
}



// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
