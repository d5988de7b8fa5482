package password

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-verify/internal/httputil"
	"github.com/tendant/simple-verify/pkg/auth"
	"github.com/tendant/simple-verify/pkg/domain"
)

// Handler handles registration and credential sync.
type Handler struct {
	logger              *slog.Logger
	registrationService *auth.RegistrationService
	verificationService *auth.VerificationService
}

// NewHandler creates a new password handler.
func NewHandler(
	logger *slog.Logger,
	registrationService *auth.RegistrationService,
	verificationService *auth.VerificationService,
) *Handler {
	return &Handler{
		logger:              logger,
		registrationService: registrationService,
		verificationService: verificationService,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email                string `json:"email" validate:"required"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// SyncRequest carries the credentials to check.
type SyncRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SyncResponse holds the user state a client needs after login.
type SyncResponse struct {
	User domain.UserSnapshot `json:"user"`
}

// Register creates an account and mails its first verification code.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := httputil.ValidateStruct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "Email, password, and password confirmation are required")
		return
	}

	user, err := h.registrationService.Register(r.Context(), auth.RegisterInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.Error(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusBadRequest, "Email has already been taken")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)

	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		Message: "Registration successful. Please check your email to verify your account.",
		UserID:  user.ID,
	})
}

// Sync checks credentials and returns the user once their email is verified.
// POST /api/auth/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := httputil.ValidateStruct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.verificationService.AuthenticateForSync(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, domain.ErrEmailNotVerified):
			httputil.Error(w, http.StatusForbidden, "Email not verified")
		default:
			h.logger.Error("sync failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "Sync failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, SyncResponse{User: user.Snapshot()})
}
