package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tendant/simple-verify/internal/config"
	"github.com/tendant/simple-verify/internal/httputil"
)

// Rate limiter groups.
const (
	LimiterAuth   = "auth"
	LimiterVerify = "verify"
	LimiterResend = "resend"
)

// RateLimitConfig holds rate limiting configuration for one endpoint group.
type RateLimitConfig struct {
	Name     string
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"limiter", cfg.Name,
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "Too many requests, please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters builds the per-group limiters keyed by LimiterAuth, LimiterVerify and LimiterResend.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterAuth:   noOp,
			LimiterVerify: noOp,
			LimiterResend: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimiterAuth: RateLimit(RateLimitConfig{
			Name:     LimiterAuth,
			Requests: cfg.AuthRequestsPerMinute,
			Window:   time.Duration(cfg.AuthWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimiterVerify: RateLimit(RateLimitConfig{
			Name:     LimiterVerify,
			Requests: cfg.VerifyRequestsPerWindow,
			Window:   time.Duration(cfg.VerifyWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimiterResend: RateLimit(RateLimitConfig{
			Name:     LimiterResend,
			Requests: cfg.ResendRequestsPerWindow,
			Window:   time.Duration(cfg.ResendWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
	}
}
