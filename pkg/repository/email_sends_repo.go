package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// EmailSendsRepository stores the last verification send per address in Postgres.
type EmailSendsRepository struct {
	db *sql.DB
}

// NewEmailSendsRepository creates a new email sends repository.
func NewEmailSendsRepository(db *sql.DB) *EmailSendsRepository {
	return &EmailSendsRepository{db: db}
}

// LastSentAt returns the last recorded send, or the zero time when none exists.
func (r *EmailSendsRepository) LastSentAt(ctx context.Context, email string) (time.Time, error) {
	query := `SELECT last_sent_at FROM email_sends WHERE email = $1`
	var last time.Time
	err := r.db.QueryRowContext(ctx, query, email).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return last, nil
}

// RecordSend upserts the last send time for email.
func (r *EmailSendsRepository) RecordSend(ctx context.Context, email string, at time.Time) error {
	query := `
		INSERT INTO email_sends (email, last_sent_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET last_sent_at = EXCLUDED.last_sent_at
	`
	_, err := r.db.ExecContext(ctx, query, email, at)
	return err
}

// ReserveSend records a send only when the previous one is at least interval old.
// The conditional upsert makes check and record a single statement.
func (r *EmailSendsRepository) ReserveSend(ctx context.Context, email string, at time.Time, interval time.Duration) (bool, error) {
	query := `
		INSERT INTO email_sends (email, last_sent_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET last_sent_at = EXCLUDED.last_sent_at
		WHERE email_sends.last_sent_at <= $3
		RETURNING email
	`
	var reserved string
	err := r.db.QueryRowContext(ctx, query, email, at, at.Add(-interval)).Scan(&reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseSend deletes the record for email when it still holds at.
func (r *EmailSendsRepository) ReleaseSend(ctx context.Context, email string, at time.Time) error {
	query := `DELETE FROM email_sends WHERE email = $1 AND last_sent_at = $2`
	_, err := r.db.ExecContext(ctx, query, email, at)
	return err
}
