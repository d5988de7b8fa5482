package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser is the role assigned to self-registered accounts.
const RoleUser = "user"

// User represents the account.
type User struct {
	ID                              uuid.UUID
	Email                           string
	PasswordHash                    string
	Role                            string
	EmailVerified                   bool
	EmailVerificationToken          *string
	EmailVerificationTokenExpiresAt *time.Time
	CreatedAt                       time.Time
	UpdatedAt                       time.Time
}

// TokenExpired reports whether the stored code can no longer be used at now.
// A missing expiry counts as expired.
func (u *User) TokenExpired(now time.Time) bool {
	if u.EmailVerificationTokenExpiresAt == nil {
		return true
	}
	return now.After(*u.EmailVerificationTokenExpiresAt)
}

// UserSnapshot is the public view of a user returned to clients.
type UserSnapshot struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

// Snapshot returns the client-facing view. It never carries credential material.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}
