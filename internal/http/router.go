package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-verify/internal/config"
	"github.com/tendant/simple-verify/internal/http/features/email"
	"github.com/tendant/simple-verify/internal/http/features/password"
	"github.com/tendant/simple-verify/internal/http/middleware"
	"github.com/tendant/simple-verify/internal/httputil"
	"github.com/tendant/simple-verify/internal/monitoring"
	"github.com/tendant/simple-verify/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	RegistrationService *auth.RegistrationService
	VerificationService *auth.VerificationService
	// Metrics is optional; when set, request latency is recorded and /metrics is served.
	Metrics *monitoring.Module
	// HealthCheck is optional; a non-nil error turns /health into a 503.
	HealthCheck func(ctx context.Context) error

	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				cfg.Logger.Warn("health check failed", "error", err)
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	passwordHandler := password.NewHandler(cfg.Logger, cfg.RegistrationService, cfg.VerificationService)
	passwordHandler.RegisterRoutes(r, rateLimiters[middleware.LimiterAuth])

	emailHandler := email.NewHandler(cfg.Logger, cfg.VerificationService)
	emailHandler.RegisterRoutes(r, rateLimiters[middleware.LimiterVerify], rateLimiters[middleware.LimiterResend])

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
