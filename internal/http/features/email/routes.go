package email

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the email verification routes.
// verifyLimit guards code submission and status polling, resendLimit guards outbound mail.
func (h *Handler) RegisterRoutes(r chi.Router, verifyLimit, resendLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(verifyLimit)
		r.Post("/api/auth/verify-email", h.VerifyEmail)
		r.Post("/api/auth/check-verification", h.CheckVerification)
	})
	r.Group(func(r chi.Router) {
		r.Use(resendLimit)
		r.Post("/api/auth/resend-verification", h.ResendVerification)
	})
}
