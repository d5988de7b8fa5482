package domain

import "time"

// EmailSend tracks the most recent verification email sent to an address.
// It is keyed by the address string and lives independently of the users table.
type EmailSend struct {
	Email      string
	LastSentAt time.Time
}
