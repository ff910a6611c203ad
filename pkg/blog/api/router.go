package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// RouterConfig holds what NewRouter mounts
type RouterConfig struct {
	Service blog.Service
	Auth    blog.AuthService
	Logger  *slog.Logger

	// Ready backs /healthz/ready; nil always reports ready.
	Ready func(ctx context.Context) error

	// Uploads, when set, is mounted at UploadsPrefix to serve stored covers.
	Uploads       http.Handler
	UploadsPrefix string

	// CORS allows any origin; intended for development.
	CORS bool
}

// NewRouter returns the full HTTP surface of the blog
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.CORS {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// Health checks
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ready"})
	})

	if cfg.Uploads != nil && cfg.UploadsPrefix != "" {
		r.Handle(cfg.UploadsPrefix+"/*", cfg.Uploads)
	}

	posts := NewPostHandler(cfg.Service, logger)
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Auth, cfg.Service, logger))

		r.Get("/", posts.Catalog)
		r.Mount("/api/v1/posts", posts.Routes())
	})

	return r
}
