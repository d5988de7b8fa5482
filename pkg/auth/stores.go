package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-verify/pkg/domain"
)

// UserStore persists accounts and their verification tokens.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	// SetVerificationToken overwrites any previously issued token.
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// ConsumeVerificationToken marks the email verified and clears the token, but only
	// while the user still holds token. It returns domain.ErrVerificationTokenInvalid otherwise.
	ConsumeVerificationToken(ctx context.Context, userID uuid.UUID, token string) (*domain.User, error)
}

// EmailSendStore persists the most recent verification send per address.
type EmailSendStore interface {
	// LastSentAt returns the zero time when no send was recorded.
	LastSentAt(ctx context.Context, email string) (time.Time, error)
	RecordSend(ctx context.Context, email string, at time.Time) error
	// ReserveSend records a send at `at` only if no send was recorded after at-interval.
	// It returns false when the address is still cooling down.
	ReserveSend(ctx context.Context, email string, at time.Time, interval time.Duration) (bool, error)
	// ReleaseSend drops the record for email if it still holds at, undoing a reservation
	// whose mail never went out.
	ReleaseSend(ctx context.Context, email string, at time.Time) error
}

// CodeSender delivers a raw verification code to an address.
// Display formatting is the sender's job.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}
