package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mediagrab/internal/adapter/http/ratelimit"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
)

const tokenQueryParam = "token"

type TokenVerifier interface {
	Enabled() bool
	Verify(token string) error
}

// authGuard checks bearer tokens and slows down clients that keep failing.
type authGuard struct {
	verifier    TokenVerifier
	failures    *ratelimit.FailureLimiter
	backoff     *ratelimit.Backoff
	behindProxy bool
}

func newAuthGuard(verifier TokenVerifier, behindProxy bool) *authGuard {
	return &authGuard{
		verifier:    verifier,
		failures:    ratelimit.NewFailureLimiter(5, 15*time.Minute, 30*time.Minute),
		backoff:     ratelimit.NewBackoff(500*time.Millisecond, 10*time.Second, 2.0),
		behindProxy: behindProxy,
	}
}

// AuthMiddleware requires a valid token when one is configured. Browsers
// cannot set headers on EventSource or download links, so the token is
// also accepted as a query parameter.
func (g *authGuard) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.verifier == nil || !g.verifier.Enabled() {
			next(w, r)
			return
		}

		client := clientID(r, g.behindProxy)
		if blocked, remaining := g.failures.Blocked(client); blocked {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(remaining.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}

		if err := g.verifier.Verify(bearerToken(r)); err != nil {
			attempts := g.failures.RecordFailure(client)
			logger.Warn.Printf("auth failure from %s (%d in window): %v", logger.SanitizeForLog(client), attempts, err)
			if !sleepCtx(r.Context(), g.backoff.Duration(attempts)) {
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="mediagrab"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		g.failures.Reset(client)
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(tokenQueryParam)
}

// clientID identifies the caller for rate limiting. Forwarded headers are
// only trusted behind a proxy.
func clientID(r *http.Request, behindProxy bool) string {
	if behindProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
