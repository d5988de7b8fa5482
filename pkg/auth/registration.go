package auth

import (
	"context"

	"github.com/tendant/simple-verify/pkg/domain"
)

// RegistrationService creates accounts and sends their first verification code.
type RegistrationService struct {
	passwords    *PasswordService
	verification *VerificationService
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(passwords *PasswordService, verification *VerificationService) *RegistrationService {
	return &RegistrationService{
		passwords:    passwords,
		verification: verification,
	}
}

// Register creates the user with a freshly issued code in a single write, then
// attempts delivery. A failed delivery does not fail registration.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	var code string
	user, err := s.passwords.Register(ctx, in, func(u *domain.User) error {
		c, err := s.verification.PrepareToken(u)
		if err != nil {
			return err
		}
		code = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.verification.SendRegistrationCode(ctx, user, code)
	return user, nil
}
