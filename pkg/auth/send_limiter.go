package auth

import (
	"context"
	"fmt"
	"time"
)

// DefaultResendInterval is the minimum time between verification emails to one address.
const DefaultResendInterval = time.Minute

// SendLimiter enforces a per-address cooldown between verification emails.
type SendLimiter struct {
	store    EmailSendStore
	interval time.Duration
	now      func() time.Time
}

// NewSendLimiter creates a limiter over store. A non-positive interval selects DefaultResendInterval.
func NewSendLimiter(store EmailSendStore, interval time.Duration) *SendLimiter {
	if interval <= 0 {
		interval = DefaultResendInterval
	}
	return &SendLimiter{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Interval returns the configured cooldown.
func (l *SendLimiter) Interval() time.Duration {
	return l.interval
}

// CanSend returns false if a send was recorded for email within the interval.
func (l *SendLimiter) CanSend(ctx context.Context, email string) (bool, error) {
	last, err := l.store.LastSentAt(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to read send history: %w", err)
	}
	if last.IsZero() {
		return true, nil
	}
	return l.now().Sub(last) >= l.interval, nil
}

// RecordSend stamps now as the latest send for email.
func (l *SendLimiter) RecordSend(ctx context.Context, email string) error {
	if err := l.store.RecordSend(ctx, email, l.now()); err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}
	return nil
}

// Reserve atomically checks the cooldown and records a send. It returns the
// reservation time to hand back to Release when the mail could not be sent.
// Times are truncated to microseconds, the precision Postgres stores.
func (l *SendLimiter) Reserve(ctx context.Context, email string) (time.Time, bool, error) {
	at := l.now().Truncate(time.Microsecond)
	ok, err := l.store.ReserveSend(ctx, email, at, l.interval)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to reserve send: %w", err)
	}
	return at, ok, nil
}

// Release undoes the reservation taken at at, unless a later send replaced it.
func (l *SendLimiter) Release(ctx context.Context, email string, at time.Time) error {
	if err := l.store.ReleaseSend(ctx, email, at); err != nil {
		return fmt.Errorf("failed to release send: %w", err)
	}
	return nil
}

// RetryAfter returns how long the caller must wait before email can be sent to again.
func (l *SendLimiter) RetryAfter(ctx context.Context, email string) (time.Duration, error) {
	last, err := l.store.LastSentAt(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to read send history: %w", err)
	}
	if last.IsZero() {
		return 0, nil
	}
	remaining := l.interval - l.now().Sub(last)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
