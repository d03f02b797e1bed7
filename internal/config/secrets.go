package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Storage (S3 credentials)
	out.Storage = cfg.Storage
	redact(&out.Storage.S3.AccessKey)
	redact(&out.Storage.S3.SecretKey)

	// Cache (Redis)
	out.Cache = cfg.Cache
	redact(&out.Cache.Redis.Password)

	// Audit (Postgres)
	out.Audit = cfg.Audit
	redact(&out.Audit.Postgres.DSN)
	redact(&out.Audit.Postgres.Password)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
