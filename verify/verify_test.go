package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	codes map[string]string
}

func (c *captureSender) SendVerificationCode(_ context.Context, to, code string) error {
	c.codes[to] = code
	return nil
}

func post(t *testing.T, h http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload)))
	return rec
}

func TestNew_MemoryMode(t *testing.T) {
	sender := &captureSender{codes: map[string]string{}}
	v, err := New(Config{
		Sender:  sender,
		Metrics: true,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	h := v.Handler()
	rec := post(t, h, "/api/auth/register", map[string]string{
		"email":                "dana@example.com",
		"password":             "password123",
		"passwordConfirmation": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user, err := v.GetUser(context.Background(), "dana@example.com")
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)

	rec = post(t, h, "/api/auth/verify-email", map[string]string{"token": sender.codes["dana@example.com"]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user, err = v.GetUser(context.Background(), "  dana@example.com\t")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	_, err = v.GetUser(context.Background(), "nobody@example.com")
	assert.True(t, IsNotFound(err))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `simple_verify_verification_attempts_total{result="verified"} 1`)
}

func TestNew_Defaults(t *testing.T) {
	v, err := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, v.VerificationService().TokenTTL())
	assert.Equal(t, time.Minute, v.VerificationService().Limiter().Interval())
	assert.NotNil(t, v.config.Sender)

	rec := httptest.NewRecorder()
	v.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative token ttl", Config{TokenTTL: -time.Hour}},
		{"negative resend interval", Config{ResendInterval: -time.Second}},
		{"negative password length", Config{MinPasswordLength: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Errorf("New should fail for %s", tt.name)
			}
		})
	}
}
