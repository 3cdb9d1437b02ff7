package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/planora/planora/internal/metrics"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// corsMiddleware returns middleware that handles CORS headers and preflight requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	// Build a set for fast lookup.
	allowAll := false
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && len(allowedOrigins) > 0 {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}

				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			}

			// Handle preflight.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// secureHeaders adds security-related response headers.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware ensures every request has an X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = generateID()
		}
		// Sanitize: strip any whitespace/newlines.
		id = strings.TrimSpace(id)

		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateID produces a 32-character hex string from 16 random bytes.
func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// metricsMiddleware records request counts, latencies, and response sizes
// against the matched route pattern.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(r.Method, pattern).Observe(float64(ww.BytesWritten()))
		})
	}
}

// loginRateLimiter is a small per-IP fixed-window limiter for the login and
// register endpoints. It is deliberately separate from any general-purpose
// rate limiting: credential endpoints get their own, tighter budget.
type loginRateLimiter struct {
	limit   int
	window  time.Duration
	entries sync.Map // ip -> *loginWindow

	sweepMu   sync.Mutex
	nextSweep time.Time
}

type loginWindow struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

func newLoginRateLimiter(limit int, window time.Duration) *loginRateLimiter {
	return &loginRateLimiter{limit: limit, window: window}
}

// allow reports whether a request from ip may proceed, and if not, how many
// seconds until the window resets.
func (rl *loginRateLimiter) allow(ip string) (bool, int) {
	now := time.Now()
	rl.maybeSweep(now)
	v, _ := rl.entries.LoadOrStore(ip, &loginWindow{resetAt: now.Add(rl.window)})
	lw := v.(*loginWindow)

	lw.mu.Lock()
	defer lw.mu.Unlock()

	if now.After(lw.resetAt) {
		lw.count = 0
		lw.resetAt = now.Add(rl.window)
	}

	if lw.count >= rl.limit {
		retryAfter := int(time.Until(lw.resetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}

	lw.count++
	return true, 0
}

// maybeSweep drops expired windows, at most once per few windows. Sweeping
// from the request path bounds the entries map without a background
// goroutine that would need its own shutdown handling.
func (rl *loginRateLimiter) maybeSweep(now time.Time) {
	rl.sweepMu.Lock()
	if now.Before(rl.nextSweep) {
		rl.sweepMu.Unlock()
		return
	}
	rl.nextSweep = now.Add(5 * rl.window)
	rl.sweepMu.Unlock()

	rl.entries.Range(func(key, value any) bool {
		lw := value.(*loginWindow)
		lw.mu.Lock()
		expired := now.After(lw.resetAt)
		lw.mu.Unlock()
		if expired {
			rl.entries.Delete(key)
		}
		return true
	})
}

// loginRateLimit wraps a handler with the per-IP limiter.
func loginRateLimit(rl *loginRateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := rl.allow(clientIP(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many attempts, try again later")
			return
		}
		next(w, r)
	}
}
