package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "Email is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Email is required", body.Error)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
		rec := httptest.NewRecorder()

		var p payload
		assert.True(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, "a@x.com", p.Email)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		rec := httptest.NewRecorder()

		var p payload
		assert.False(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`"}`))
		rec := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(rec, req.Body, 10)

		var p payload
		assert.False(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Email string `json:"email" validate:"required"`
		Token string `json:"token" validate:"required"`
	}

	assert.NoError(t, ValidateStruct(request{Email: "a@x.com", Token: "ABCD2345"}))

	err := ValidateStruct(request{Token: "ABCD2345"})
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve, 1)
	assert.Equal(t, FieldError{Field: "email", Tag: "required"}, ve[0])
	assert.Equal(t, "email failed on required", ve.Error())

	messages := map[string]string{"email": "Email is required"}
	assert.Equal(t, "Email is required", ValidationMessage(err, messages, "invalid request"))

	err = ValidateStruct(request{Email: "a@x.com"})
	assert.Equal(t, "invalid request", ValidationMessage(err, messages, "invalid request"))
}
