package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/simple-verify/pkg/domain"
)

const uniqueViolation = "23505"

const userColumns = `
	id, email, password_hash, role, email_verified,
	email_verification_token, email_verification_token_expires_at,
	created_at, updated_at
`

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, role, email_verified,
		                   email_verification_token, email_verification_token_expires_at,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role, user.EmailVerified,
		user.EmailVerificationToken, user.EmailVerificationTokenExpiresAt,
		user.CreatedAt, user.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetByEmail retrieves a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByVerificationToken retrieves the user currently holding token.
func (r *UsersRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_verification_token = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

// ExistsByEmail checks if a user exists by email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// SetVerificationToken replaces the user's verification token and expiry.
func (r *UsersRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET email_verification_token = $2,
		    email_verification_token_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, token, expiresAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeVerificationToken marks the email verified and clears the token in one
// conditional update. A concurrent consumer of the same token gets
// domain.ErrVerificationTokenInvalid.
func (r *UsersRepository) ConsumeVerificationToken(ctx context.Context, userID uuid.UUID, token string) (*domain.User, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE,
		    email_verification_token = NULL,
		    email_verification_token_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND email_verification_token = $2
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID, token))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrVerificationTokenInvalid
	}
	return user, err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var token sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.EmailVerified,
		&token, &expiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if token.Valid {
		user.EmailVerificationToken = &token.String
	}
	if expiresAt.Valid {
		user.EmailVerificationTokenExpiresAt = &expiresAt.Time
	}
	return user, nil
}
