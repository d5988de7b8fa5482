package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-verify/pkg/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("verify_db"),
		postgres.WithUsername("verify"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connString)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// Migrations are idempotent.
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestPostgres_UsersRepository(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()
	repo := NewUsersRepository(db)

	token := "ABCD2345"
	expiresAt := time.Now().Add(24 * time.Hour).UTC()
	user := newTestUser("Alice@Example.com")
	user.EmailVerificationToken = &token
	user.EmailVerificationTokenExpiresAt = &expiresAt
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, newTestUser("Alice@Example.com"))
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	got, err := repo.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.False(t, got.EmailVerified)
	require.NotNil(t, got.EmailVerificationTokenExpiresAt)
	assert.WithinDuration(t, expiresAt, *got.EmailVerificationTokenExpiresAt, time.Millisecond)

	exists, err := repo.ExistsByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	byToken, err := repo.GetByVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)

	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "WXYZ6789", expiresAt))
	_, err = repo.GetByVerificationToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.ConsumeVerificationToken(ctx, user.ID, token)
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

func TestPostgres_EmailSendsRepository(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()
	repo := NewEmailSendsRepository(db)
	base := time.Now().UTC().Truncate(time.Second)

	last, err := repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	ok, err := repo.ReserveSend(ctx, "alice@example.com", base, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ReserveSend(ctx, "alice@example.com", base.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ReserveSend(ctx, "alice@example.com", base.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RecordSend(ctx, "bob@example.com", base))
	last, err = repo.LastSentAt(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, base.Equal(last))

	// Release only drops the record it was handed.
	require.NoError(t, repo.ReleaseSend(ctx, "alice@example.com", base))
	ok, err = repo.ReserveSend(ctx, "alice@example.com", base.Add(time.Minute+time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	reserved := base.Add(time.Minute).Add(123 * time.Microsecond)
	require.NoError(t, repo.ReleaseSend(ctx, "alice@example.com", base.Add(time.Minute)))
	ok, err = repo.ReserveSend(ctx, "alice@example.com", reserved, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ReleaseSend(ctx, "alice@example.com", reserved))
	last, err = repo.LastSentAt(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
