package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUser_TokenExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Second)
	future := now.Add(1 * time.Second)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "missing expiry", expiresAt: nil, want: true},
		{name: "in the past", expiresAt: &past, want: true},
		{name: "in the future", expiresAt: &future, want: false},
		{name: "exactly now", expiresAt: &now, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{EmailVerificationTokenExpiresAt: tt.expiresAt}
			if got := user.TokenExpired(now); got != tt.want {
				t.Errorf("TokenExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_Snapshot(t *testing.T) {
	user := &User{
		ID:            uuid.New(),
		Email:         "a@x.com",
		PasswordHash:  "$argon2id$secret",
		Role:          RoleUser,
		EmailVerified: true,
	}

	snap := user.Snapshot()
	if snap.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", snap.Email, "a@x.com")
	}
	if snap.Role != RoleUser {
		t.Errorf("Role = %q, want %q", snap.Role, RoleUser)
	}
	if !snap.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestValidationError(t *testing.T) {
	var err error = NewValidationError("Password confirmation does not match")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should match *ValidationError")
	}
	if ve.Error() != "Password confirmation does not match" {
		t.Errorf("Error() = %q", ve.Error())
	}
}
