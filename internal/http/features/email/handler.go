package email

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/tendant/simple-verify/internal/httputil"
	"github.com/tendant/simple-verify/pkg/auth"
	"github.com/tendant/simple-verify/pkg/domain"
)

const resendMessage = "If an account with that email exists, a verification email has been sent."

// Handler serves the email verification endpoints.
type Handler struct {
	logger              *slog.Logger
	verificationService *auth.VerificationService
}

// NewHandler creates the handler for the verify, resend and status endpoints.
func NewHandler(logger *slog.Logger, verificationService *auth.VerificationService) *Handler {
	return &Handler{
		logger:              logger,
		verificationService: verificationService,
	}
}

// VerifyEmailRequest is the body of POST /verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// EmailRequest is the body of the resend and status endpoints.
type EmailRequest struct {
	Email string `json:"email" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// VerifyEmailResponse carries the verified account.
type VerifyEmailResponse struct {
	Message string              `json:"message"`
	User    domain.UserSnapshot `json:"user"`
}

type StatusResponse struct {
	EmailVerified bool `json:"emailVerified"`
}

var requiredMessages = map[string]string{
	"token": "Verification code is required",
	"email": "Email is required",
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if !httputil.DecodeJSON(w, r, v) {
		return false
	}
	if err := httputil.ValidateStruct(v); err != nil {
		httputil.Error(w, http.StatusBadRequest, httputil.ValidationMessage(err, requiredMessages, "invalid request body"))
		return false
	}
	return true
}

// VerifyEmail consumes a verification code.
// POST /api/auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.verificationService.Verify(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationTokenInvalid):
			httputil.Error(w, http.StatusBadRequest, "Invalid or expired verification code")
		case errors.Is(err, domain.ErrVerificationTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "Verification code has expired. Please request a new one.")
		default:
			h.logger.Error("failed to verify email", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "Email verification failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyEmailResponse{
		Message: "Email verified successfully. You can now log in.",
		User:    user.Snapshot(),
	})
}

// ResendVerification issues and mails a fresh code.
// POST /api/auth/resend-verification
//
// Unknown addresses get the same reply as a successful send.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.verificationService.Resend(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailAlreadyVerified):
			httputil.Error(w, http.StatusBadRequest, "Email is already verified")
		case errors.Is(err, domain.ErrRateLimited):
			h.setRetryAfter(w, r, req.Email)
			httputil.Error(w, http.StatusTooManyRequests, "Please wait at least 1 minute before requesting another verification email")
		case errors.Is(err, domain.ErrDeliveryFailed):
			httputil.Error(w, http.StatusInternalServerError, "Failed to send verification email")
		default:
			h.logger.Error("failed to resend verification email", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "Failed to resend verification email")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: resendMessage})
}

func (h *Handler) setRetryAfter(w http.ResponseWriter, r *http.Request, email string) {
	wait, err := h.verificationService.RetryAfter(r.Context(), email)
	if err != nil {
		h.logger.Warn("failed to compute retry-after", "error", err)
		wait = h.verificationService.Limiter().Interval()
	}
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}

// CheckVerification reports whether an account's email is verified.
// POST /api/auth/check-verification
func (h *Handler) CheckVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}

	verified, err := h.verificationService.CheckStatus(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to check verification status", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "Failed to check verification status")
		return
	}

	httputil.JSON(w, http.StatusOK, StatusResponse{EmailVerified: verified})
}
