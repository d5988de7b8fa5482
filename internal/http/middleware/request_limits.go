package middleware

import (
	"net/http"
)

// RequestSizeLimit caps request bodies at maxBytes. A non-positive maxBytes disables the cap.
// Handlers see *http.MaxBytesError from the body reader once the cap is exceeded.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
