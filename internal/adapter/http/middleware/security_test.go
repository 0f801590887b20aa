package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_StaticHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	tests := []struct {
		header   string
		expected string
	}{
		{header: "X-Content-Type-Options", expected: "nosniff"},
		{header: "X-Frame-Options", expected: "DENY"},
		{header: "Referrer-Policy", expected: "no-referrer"},
		{header: "Permissions-Policy", expected: "camera=(), microphone=(), geolocation=()"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Header().Get(tt.header))
		})
	}
}

func TestSecurityHeaders_CSP_AllDirectives(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	SecurityHeaders(okHandler()).ServeHTTP(rec, req)

	csp := rec.Header().Get("Content-Security-Policy")
	for _, directive := range []string{
		"default-src 'none'",
		"base-uri 'none'",
		"form-action 'none'",
		"frame-ancestors 'none'",
	} {
		assert.Contains(t, csp, directive, "CSP should contain %s directive", directive)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantHSTS bool
	}{
		{name: "plain http", setup: func(*http.Request) {}},
		{
			name:     "tls connection",
			setup:    func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			wantHSTS: true,
		},
		{
			name:     "forwarded https",
			setup:    func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") },
			wantHSTS: true,
		},
		{
			name:  "forwarded http",
			setup: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "http") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			SecurityHeaders(okHandler()).ServeHTTP(rec, req)

			hsts := rec.Header().Get("Strict-Transport-Security")
			if !tt.wantHSTS {
				assert.Empty(t, hsts)
				return
			}
			assert.Contains(t, hsts, "max-age=31536000")
			assert.Contains(t, hsts, "includeSubDomains")
		})
	}
}

func TestSecurityHeaders_PreservesResponse(t *testing.T) {
	called := false
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}
