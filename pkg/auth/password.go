package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-verify/internal/config"
	"github.com/tendant/simple-verify/pkg/domain"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// RegisterInput holds the fields submitted on registration.
type RegisterInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
}

// PasswordService handles password registration and credential checks.
type PasswordService struct {
	users  UserStore
	policy *PasswordPolicy
	emails EmailRules
	now    func() time.Time
}

// NewPasswordService creates a new password service. A nil policy selects the default policy.
func NewPasswordService(users UserStore, policy *PasswordPolicy, emails EmailRules) *PasswordService {
	if policy == nil {
		policy = NewPasswordPolicy(config.PasswordPolicyConfig{})
	}
	return &PasswordService{
		users:  users,
		policy: policy,
		emails: emails,
		now:    time.Now,
	}
}

// Register validates input, hashes the password and creates the user.
// beforeCreate, when non-nil, runs on the new user right before it is persisted.
func (s *PasswordService) Register(ctx context.Context, in RegisterInput, beforeCreate func(*domain.User) error) (*domain.User, error) {
	if in.Email == "" || in.Password == "" || in.PasswordConfirmation == "" {
		return nil, domain.NewValidationError("Email, password, and password confirmation are required")
	}
	if in.Password != in.PasswordConfirmation {
		return nil, domain.NewValidationError("Password confirmation does not match")
	}
	if err := s.policy.Validate(in.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(in.Email)
	if err := s.emails.Validate(email); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleUser,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if beforeCreate != nil {
		if err := beforeCreate(user); err != nil {
			return nil, err
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *PasswordService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one Argon2 evaluation.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("simple-verify-dummy-password")
	if err != nil {
		return ""
	}
	return hash
})

func authenticate(ctx context.Context, users UserStore, email, password string) (*domain.User, error) {
	user, err := users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			VerifyPassword(password, dummyHash())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads)
	return encoded, nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
