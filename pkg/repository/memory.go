package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-verify/pkg/domain"
)

// MemoryUsersRepository implements auth.UserStore in process memory
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
	now   func() time.Time
}

// NewMemoryUsersRepository creates an empty in-memory users repository
func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{
		users: make(map[uuid.UUID]*domain.User),
		now:   time.Now,
	}
}

// Create stores a copy of user
func (r *MemoryUsersRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

// GetByEmail retrieves a user by exact email
func (r *MemoryUsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ExistsByEmail checks if a user exists by email
func (r *MemoryUsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

// GetByVerificationToken retrieves the user currently holding token
func (r *MemoryUsersRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// SetVerificationToken replaces the user's token and expiry
func (r *MemoryUsersRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmailVerificationToken = &token
	u.EmailVerificationTokenExpiresAt = &expiresAt
	u.UpdatedAt = r.now()
	return nil
}

// ConsumeVerificationToken verifies the user if they still hold token
func (r *MemoryUsersRepository) ConsumeVerificationToken(ctx context.Context, userID uuid.UUID, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.EmailVerificationToken == nil || *u.EmailVerificationToken != token {
		return nil, domain.ErrVerificationTokenInvalid
	}
	u.EmailVerified = true
	u.EmailVerificationToken = nil
	u.EmailVerificationTokenExpiresAt = nil
	u.UpdatedAt = r.now()
	return cloneUser(u), nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.EmailVerificationToken != nil {
		token := *u.EmailVerificationToken
		c.EmailVerificationToken = &token
	}
	if u.EmailVerificationTokenExpiresAt != nil {
		exp := *u.EmailVerificationTokenExpiresAt
		c.EmailVerificationTokenExpiresAt = &exp
	}
	return &c
}

// MemoryEmailSendsRepository implements auth.EmailSendStore in process memory
type MemoryEmailSendsRepository struct {
	mu    sync.Mutex
	sends map[string]domain.EmailSend
}

// NewMemoryEmailSendsRepository creates an empty in-memory send store
func NewMemoryEmailSendsRepository() *MemoryEmailSendsRepository {
	return &MemoryEmailSendsRepository{
		sends: make(map[string]domain.EmailSend),
	}
}

// LastSentAt returns the last recorded send, or the zero time
func (r *MemoryEmailSendsRepository) LastSentAt(ctx context.Context, email string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends[email].LastSentAt, nil
}

// RecordSend stores at as the last send for email
func (r *MemoryEmailSendsRepository) RecordSend(ctx context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends[email] = domain.EmailSend{Email: email, LastSentAt: at}
	return nil
}

// ReserveSend records at unless the previous send is younger than interval
func (r *MemoryEmailSendsRepository) ReserveSend(ctx context.Context, email string, at time.Time, interval time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.sends[email]; ok && at.Sub(last.LastSentAt) < interval {
		return false, nil
	}
	r.sends[email] = domain.EmailSend{Email: email, LastSentAt: at}
	return true, nil
}

// ReleaseSend deletes the record for email when it still holds at.
func (r *MemoryEmailSendsRepository) ReleaseSend(ctx context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.sends[email]; ok && last.LastSentAt.Equal(at) {
		delete(r.sends, email)
	}
	return nil
}
