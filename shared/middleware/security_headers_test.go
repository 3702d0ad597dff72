package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeadersWithCSP(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("plain http", func(t *testing.T) {
		rr := httptest.NewRecorder()
		SecurityHeadersWithCSP(false, "")(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
		assert.Equal(t, "off", rr.Header().Get("X-DNS-Prefetch-Control"))
		assert.Equal(t, "same-origin", rr.Header().Get("Referrer-Policy"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Empty(t, rr.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	})

	t.Run("https with csp", func(t *testing.T) {
		rr := httptest.NewRecorder()
		SecurityHeadersWithCSP(true, "default-src 'none'")(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "default-src 'none'", rr.Header().Get("Content-Security-Policy"))
		assert.Contains(t, rr.Header().Get("Strict-Transport-Security"), "max-age=")
	})
}
