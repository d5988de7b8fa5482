package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Verification errors
var (
	// ErrVerificationTokenInvalid covers both unknown and no-longer-active codes.
	ErrVerificationTokenInvalid = errors.New("invalid or expired verification code")
	ErrVerificationTokenExpired = errors.New("verification code expired")
	ErrEmailAlreadyVerified     = errors.New("email already verified")
	ErrRateLimited              = errors.New("verification email sent too recently")
	ErrDeliveryFailed           = errors.New("failed to deliver verification email")
)

// ValidationError is returned for malformed or missing input the caller can correct.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
