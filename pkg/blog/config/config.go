package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	facetredis "github.com/tendant/simple-blog/pkg/blog/cache/redis"
	fsmedia "github.com/tendant/simple-blog/pkg/blog/media/fs"
	memorymedia "github.com/tendant/simple-blog/pkg/blog/media/memory"
	s3media "github.com/tendant/simple-blog/pkg/blog/media/s3"
	"github.com/tendant/simple-blog/pkg/blog/repo/memory"
	repopg "github.com/tendant/simple-blog/pkg/blog/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		LogLevel:     "info",
		DatabaseType: "memory",
		AutoMigrate:  true,
		Media: MediaConfig{
			Backend:   "memory",
			URLPrefix: fsmedia.DefaultURLPrefix,
			S3Region:  "us-east-1",
		},
		TokenTTL:           24 * time.Hour,
		FacetCacheTTL:      5 * time.Minute,
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the simple-blog service.
// Field tags name the environment variables read by WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL"`   // debug, info, warn, error

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE"` // "memory", "postgres"
	DBSchema     string `env:"DB_SCHEMA"`     // Postgres search_path (optional)
	AutoMigrate  bool   `env:"AUTO_MIGRATE"`

	// Cover image storage
	Media MediaConfig

	// Authentication
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"`

	// Facet cache; disabled when RedisAddr is empty
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"`
	FacetCacheTTL time.Duration `env:"FACET_CACHE_TTL"`

	// Server options
	EnableEventLogging bool `env:"EVENT_LOGGING"`
}

// MediaConfig selects and configures the cover image store
type MediaConfig struct {
	Backend   string `env:"MEDIA_BACKEND"` // "memory", "fs", "s3"
	Dir       string `env:"MEDIA_DIR"`
	URLPrefix string `env:"MEDIA_URL_PREFIX"`
	Folder    string `env:"MEDIA_FOLDER"`

	S3Region          string `env:"S3_REGION"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	S3CreateBucket    bool   `env:"S3_CREATE_BUCKET"`
	S3EnableSSE       bool   `env:"S3_ENABLE_SSE"`
	S3SSEAlgorithm    string `env:"S3_SSE_ALGORITHM"`
	S3SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Media.Backend {
	case "memory":
	case "fs":
		if c.Media.Dir == "" {
			return errors.New("media_dir is required for the fs media backend")
		}
	case "s3":
		if c.Media.S3Bucket == "" {
			return errors.New("s3_bucket is required for the s3 media backend")
		}
	default:
		return fmt.Errorf("unsupported media backend: %s", c.Media.Backend)
	}

	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Components are the backends wired from a ServerConfig
type Components struct {
	Service    blog.Service
	Auth       *auth.Service
	Repository blog.Repository
	Media      blog.MediaStore

	// Uploads serves stored covers for the fs backend; nil otherwise.
	Uploads       http.Handler
	UploadsPrefix string

	closers  []func()
	checkers []func(context.Context) error
}

// Ready reports whether every backing service is reachable
func (c *Components) Ready(ctx context.Context) error {
	for _, check := range c.checkers {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases pools and clients
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (blog.Service, error) {
	comps, err := c.Build(context.Background(), slog.Default())
	if err != nil {
		return nil, err
	}
	return comps.Service, nil
}

// Build wires the repository, media store, facet cache, auth and service.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	comps := &Components{}

	repo, err := c.buildRepository(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	comps.Repository = repo

	store, err := c.buildMediaStore(comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build media store: %w", err)
	}
	comps.Media = store

	options := []blog.Option{
		blog.WithRepository(repo),
		blog.WithMediaStore(store),
		blog.WithLogger(logger),
	}

	if c.RedisAddr != "" {
		cache := facetredis.New(facetredis.Config{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			TTL:      c.FacetCacheTTL,
		})
		comps.closers = append(comps.closers, func() { _ = cache.Close() })
		comps.checkers = append(comps.checkers, cache.Ping)
		options = append(options, blog.WithFacetCache(cache))
	}

	if c.EnableEventLogging {
		options = append(options, blog.WithEventSink(blog.NewLoggingEventSink(logger)))
	}

	secret := c.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			comps.Close()
			return nil, err
		}
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	comps.Auth, err = auth.New(secret, auth.WithTTL(c.TokenTTL))
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build auth service: %w", err)
	}

	comps.Service, err = blog.New(options...)
	if err != nil {
		comps.Close()
		return nil, err
	}
	return comps, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, comps *Components) (blog.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		if schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		comps.closers = append(comps.closers, pool.Close)
		comps.checkers = append(comps.checkers, pool.Ping)

		repo := repopg.NewWithPool(pool)
		if c.AutoMigrate {
			migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := repo.Migrate(migrateCtx); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildMediaStore creates a MediaStore based on the media configuration
func (c *ServerConfig) buildMediaStore(comps *Components) (blog.MediaStore, error) {
	m := c.Media
	switch m.Backend {
	case "memory":
		return memorymedia.New(m.URLPrefix), nil

	case "fs":
		store, err := fsmedia.New(fsmedia.Config{
			BaseDir:   m.Dir,
			URLPrefix: m.URLPrefix,
			Folder:    m.Folder,
		})
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(store.URLPrefix(), "/") {
			comps.Uploads = store.Handler()
			comps.UploadsPrefix = store.URLPrefix()
		}
		return store, nil

	case "s3":
		return s3media.New(s3media.Config{
			Region:                 m.S3Region,
			Bucket:                 m.S3Bucket,
			AccessKeyID:            m.S3AccessKeyID,
			SecretAccessKey:        m.S3SecretAccessKey,
			Endpoint:               m.S3Endpoint,
			UsePathStyle:           m.S3UsePathStyle,
			Folder:                 m.Folder,
			PublicBaseURL:          m.S3PublicBaseURL,
			EnableSSE:              m.S3EnableSSE,
			SSEAlgorithm:           m.S3SSEAlgorithm,
			SSEKMSKeyID:            m.S3SSEKMSKeyID,
			CreateBucketIfNotExist: m.S3CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported media backend: %s", m.Backend)
	}
}

// NewLogger returns a structured logger for the configured environment:
// JSON in production, text otherwise.
func (c *ServerConfig) NewLogger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
