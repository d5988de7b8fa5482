package password

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPasswordRequests_Validation(t *testing.T) {
	tests := []struct {
		name           string
		sync           bool
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "register empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Email, password, and password confirmation are required",
		},
		{
			name:           "register missing confirmation",
			body:           `{"email": "alice@example.com", "password": "password123"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Email, password, and password confirmation are required",
		},
		{
			name:           "register invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
		{
			name:           "sync missing password",
			sync:           true,
			body:           `{"email": "alice@example.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Email and password are required",
		},
	}

	handler := NewHandler(slog.Default(), nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, serve := "/api/auth/register", handler.Register
			if tt.sync {
				path, serve = "/api/auth/sync", handler.Sync
			}
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			serve(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}
