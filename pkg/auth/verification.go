package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-verify/pkg/domain"
)

// DefaultTokenTTL is how long an issued verification code stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Issue reasons reported to metrics.
const (
	IssueReasonRegistration = "registration"
	IssueReasonResend       = "resend"
)

// MetricsRecorder receives verification lifecycle events.
type MetricsRecorder interface {
	CodeIssued(reason string)
	VerificationAttempt(result string)
	ResendRequest(result string)
	Delivery(result string)
}

type nopMetrics struct{}

func (nopMetrics) CodeIssued(string)          {}
func (nopMetrics) VerificationAttempt(string) {}
func (nopMetrics) ResendRequest(string)       {}
func (nopMetrics) Delivery(string)            {}

// VerificationConfig holds code settings. A non-positive TokenTTL means DefaultTokenTTL.
type VerificationConfig struct {
	TokenTTL time.Duration
}

// VerificationService issues, checks and resends email verification codes.
type VerificationService struct {
	config  VerificationConfig
	users   UserStore
	limiter *SendLimiter
	sender  CodeSender
	logger  *slog.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// VerificationOption configures a VerificationService.
type VerificationOption func(*VerificationService)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) VerificationOption {
	return func(s *VerificationService) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) VerificationOption {
	return func(s *VerificationService) {
		s.metrics = m
	}
}

// WithClock replaces the time source of the service and its limiter.
func WithClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		s.now = now
		s.limiter.now = now
	}
}

// NewVerificationService wires a service around users, limiter and sender.
// Without options it logs to slog.Default and records no metrics.
func NewVerificationService(
	config VerificationConfig,
	users UserStore,
	limiter *SendLimiter,
	sender CodeSender,
	opts ...VerificationOption,
) *VerificationService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	s := &VerificationService{
		config:  config,
		users:   users,
		limiter: limiter,
		sender:  sender,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenTTL returns the lifetime of issued codes.
func (s *VerificationService) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

// Limiter returns the send limiter shared with registration.
func (s *VerificationService) Limiter() *SendLimiter {
	return s.limiter
}

// PrepareToken generates a code and sets it with its expiry on user without persisting.
func (s *VerificationService) PrepareToken(user *domain.User) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(s.config.TokenTTL)
	user.EmailVerificationToken = &code
	user.EmailVerificationTokenExpiresAt = &expiresAt
	return code, nil
}

// IssueToken generates a new code for user and persists it, replacing any earlier one.
func (s *VerificationService) IssueToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.config.TokenTTL)

	if err := s.users.SetVerificationToken(ctx, user.ID, code, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store verification token: %w", err)
	}

	user.EmailVerificationToken = &code
	user.EmailVerificationTokenExpiresAt = &expiresAt
	return code, expiresAt, nil
}

// Verify consumes a submitted code and marks the owning user's email as verified.
// Unknown codes return domain.ErrVerificationTokenInvalid; codes past their expiry
// return domain.ErrVerificationTokenExpired.
func (s *VerificationService) Verify(ctx context.Context, submitted string) (*domain.User, error) {
	code := NormalizeCode(submitted)
	if !IsValidCodeFormat(code) {
		s.metrics.VerificationAttempt("invalid")
		return nil, domain.ErrVerificationTokenInvalid
	}

	user, err := s.users.GetByVerificationToken(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.VerificationAttempt("invalid")
			return nil, domain.ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	if user.TokenExpired(s.now()) {
		s.metrics.VerificationAttempt("expired")
		s.logger.Info("verification code expired", "user_id", user.ID)
		return nil, domain.ErrVerificationTokenExpired
	}

	verified, err := s.users.ConsumeVerificationToken(ctx, user.ID, code)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenInvalid) {
			s.metrics.VerificationAttempt("invalid")
			return nil, err
		}
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.metrics.VerificationAttempt("verified")
	s.logger.Info("email verified", "user_id", verified.ID)
	return verified, nil
}

// Resend issues and delivers a fresh code to email.
//
// An unknown address returns nil, same as a successful send. Delivery failures are
// returned wrapped in domain.ErrDeliveryFailed and give the cooldown back, so only
// mail that actually went out throttles the next request.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil && user.EmailVerified {
		s.metrics.ResendRequest("already_verified")
		return domain.ErrEmailAlreadyVerified
	}

	// The cooldown is keyed by address, so unknown addresses are throttled too.
	reservedAt, ok, err := s.limiter.Reserve(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.ResendRequest("rate_limited")
		return domain.ErrRateLimited
	}

	if user == nil {
		s.metrics.ResendRequest("unknown")
		s.logger.Debug("resend requested for unknown email")
		return nil
	}

	code, _, err := s.IssueToken(ctx, user)
	if err != nil {
		s.release(ctx, email, reservedAt)
		return err
	}
	s.metrics.CodeIssued(IssueReasonResend)

	if err := s.sender.SendVerificationCode(ctx, user.Email, code); err != nil {
		s.metrics.Delivery("failed")
		s.metrics.ResendRequest("delivery_failed")
		s.logger.Error("failed to send verification email", "error", err, "user_id", user.ID)
		s.release(ctx, email, reservedAt)
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	s.metrics.Delivery("sent")
	s.metrics.ResendRequest("sent")
	s.logger.Info("verification email resent", "user_id", user.ID)
	return nil
}

// release gives back a reservation even when ctx was cancelled mid-request.
func (s *VerificationService) release(ctx context.Context, email string, at time.Time) {
	if err := s.limiter.Release(context.WithoutCancel(ctx), email, at); err != nil {
		s.logger.Error("failed to release resend reservation", "error", err)
	}
}

// SendRegistrationCode delivers the code issued at registration. Delivery failure is
// logged and swallowed; the user can resend. A successful send is recorded so an
// immediate resend is throttled.
func (s *VerificationService) SendRegistrationCode(ctx context.Context, user *domain.User, code string) {
	s.metrics.CodeIssued(IssueReasonRegistration)

	if err := s.sender.SendVerificationCode(ctx, user.Email, code); err != nil {
		s.metrics.Delivery("failed")
		s.logger.Error("failed to send verification email", "error", err, "user_id", user.ID)
		return
	}
	s.metrics.Delivery("sent")

	if err := s.limiter.RecordSend(ctx, user.Email); err != nil {
		s.logger.Error("failed to record verification send", "error", err, "user_id", user.ID)
		return
	}
	s.logger.Info("verification email sent", "user_id", user.ID)
}

// CheckStatus returns whether the account for email has been verified.
func (s *VerificationService) CheckStatus(ctx context.Context, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return user.EmailVerified, nil
}

// AuthenticateForSync checks credentials and returns the user only once the email is verified.
// Unknown emails and wrong passwords both return domain.ErrInvalidCredentials.
func (s *VerificationService) AuthenticateForSync(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := authenticate(ctx, s.users, email, password)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	return user, nil
}

// RetryAfter returns the remaining resend cooldown for email.
func (s *VerificationService) RetryAfter(ctx context.Context, email string) (time.Duration, error) {
	return s.limiter.RetryAfter(ctx, NormalizeEmail(email))
}
