package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-verify/pkg/domain"
)

func newTestUser(email string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryUsersRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()

	user := newTestUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	exists, err := repo.ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = repo.Create(ctx, newTestUser("alice@example.com"))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestMemoryUsersRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()

	user := newTestUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	got.EmailVerified = true

	again, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.False(t, again.EmailVerified)
}

func TestMemoryUsersRepository_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()

	user := newTestUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "ABCD2345", expiresAt))

	got, err := repo.GetByVerificationToken(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.EmailVerificationTokenExpiresAt)
	assert.True(t, expiresAt.Equal(*got.EmailVerificationTokenExpiresAt))

	// Replacing the token invalidates the old one.
	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "WXYZ6789", expiresAt))
	_, err = repo.GetByVerificationToken(ctx, "ABCD2345")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.ConsumeVerificationToken(ctx, user.ID, "ABCD2345")
	assert.ErrorIs(t, err, domain.ErrVerificationTokenInvalid)

	verified, err := repo.ConsumeVerificationToken(ctx, user.ID, "WXYZ6789")
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.EmailVerificationToken)
	assert.Nil(t, verified.EmailVerificationTokenExpiresAt)

	_, err = repo.ConsumeVerificationToken(ctx, user.ID, "WXYZ6789")
	assert.ErrorIs(t, err, domain.ErrVerificationTokenInvalid)

	err = repo.SetVerificationToken(ctx, uuid.New(), "ABCD2345", expiresAt)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryUsersRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()

	user := newTestUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "ABCD2345", time.Now().Add(time.Hour)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeVerificationToken(ctx, user.ID, "ABCD2345"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryEmailSendsRepository_ReserveSend(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEmailSendsRepository()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	last, err := repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"first send", base, true},
		{"within interval", base.Add(30 * time.Second), false},
		{"just before interval", base.Add(59 * time.Second), false},
		{"at interval", base.Add(time.Minute), true},
		{"right after new send", base.Add(time.Minute + time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := repo.ReserveSend(ctx, "alice@example.com", tt.at, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	last, err = repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute), last)
}

func TestMemoryEmailSendsRepository_ReleaseSend(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEmailSendsRepository()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, err := repo.ReserveSend(ctx, "alice@example.com", at, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ReleaseSend(ctx, "alice@example.com", at.Add(time.Second)))
	last, err := repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, at, last)

	require.NoError(t, repo.ReleaseSend(ctx, "alice@example.com", at))
	last, err = repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	ok, err = repo.ReserveSend(ctx, "alice@example.com", at.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryEmailSendsRepository_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEmailSendsRepository()
	at := time.Now()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := repo.ReserveSend(ctx, "alice@example.com", at, time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
