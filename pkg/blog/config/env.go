package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides to the configuration.
// Variables are named by the `env` tags on ServerConfig and MediaConfig;
// unset variables keep the value already in place.
//
//	PORT, ENVIRONMENT, LOG_LEVEL
//	DATABASE_URL - "memory" or "postgres(ql)://..."; the scheme selects DATABASE_TYPE
//	DB_SCHEMA, AUTO_MIGRATE
//	MEDIA_BACKEND - "memory", "fs" or "s3"
//	MEDIA_DIR, MEDIA_URL_PREFIX, MEDIA_FOLDER
//	S3_REGION, S3_BUCKET, S3_ENDPOINT, S3_USE_PATH_STYLE, S3_PUBLIC_BASE_URL, S3_CREATE_BUCKET
//	S3_ENABLE_SSE, S3_SSE_ALGORITHM, S3_SSE_KMS_KEY_ID
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
//	JWT_SECRET, TOKEN_TTL
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, FACET_CACHE_TTL
//	EVENT_LOGGING
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return applyDatabaseURL(c)
	}
}

// applyDatabaseURL derives the database type from the DATABASE_URL scheme
func applyDatabaseURL(c *ServerConfig) error {
	dbURL := c.DatabaseURL
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}
