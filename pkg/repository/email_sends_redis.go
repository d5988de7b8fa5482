package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces send records in a shared Redis.
const DefaultRedisPrefix = "simple-verify"

// RedisEmailSendsRepository keeps the last send per address in Redis.
// Keys expire after the resend interval, so a missing key means the address may send.
type RedisEmailSendsRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisEmailSendsRepository creates a Redis-backed send store. ttl bounds how long
// a record written by RecordSend is kept.
func NewRedisEmailSendsRepository(client *redis.Client, prefix string, ttl time.Duration) *RedisEmailSendsRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisEmailSendsRepository{client: client, prefix: prefix, ttl: ttl}
}

// LastSentAt returns the last recorded send, or the zero time when none exists.
func (r *RedisEmailSendsRepository) LastSentAt(ctx context.Context, email string) (time.Time, error) {
	val, err := r.client.Get(ctx, r.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid send record for %q: %w", email, err)
	}
	return time.UnixMilli(ms), nil
}

// RecordSend stores at as the last send for email.
func (r *RedisEmailSendsRepository) RecordSend(ctx context.Context, email string, at time.Time) error {
	return r.client.Set(ctx, r.key(email), at.UnixMilli(), r.ttl).Err()
}

// ReserveSend sets the record only if none exists. The key TTL is the interval.
func (r *RedisEmailSendsRepository) ReserveSend(ctx context.Context, email string, at time.Time, interval time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.key(email), at.UnixMilli(), interval).Result()
}

// releaseScript deletes KEYS[1] only while it holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseSend removes the record if it still holds at, compared at millisecond precision.
func (r *RedisEmailSendsRepository) ReleaseSend(ctx context.Context, email string, at time.Time) error {
	return releaseScript.Run(ctx, r.client, []string{r.key(email)}, strconv.FormatInt(at.UnixMilli(), 10)).Err()
}

func (r *RedisEmailSendsRepository) key(email string) string {
	return fmt.Sprintf("%s:email_send:%s", r.prefix, email)
}
