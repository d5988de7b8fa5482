package middleware

import (
	"net/http"
	"strconv"

	"github.com/tendant/simple-verify/internal/config"
)

type header struct {
	name  string
	value string
}

// SecurityHeaders sets the configured security headers on every response.
// Responses are also marked Cache-Control: no-store since they may carry account state.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := []header{
		{"Content-Security-Policy", cfg.CSP},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"X-XSS-Protection", cfg.XSSProtection},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cache-Control", "no-store"},
	}
	if cfg.HSTSMaxAge > 0 {
		headers = append(headers, header{
			"Strict-Transport-Security",
			"max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains",
		})
	}

	// Drop empty values once instead of per request.
	set := headers[:0]
	for _, h := range headers {
		if h.value != "" {
			set = append(set, h)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range set {
				w.Header().Set(h.name, h.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
