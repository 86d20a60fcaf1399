package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter caps requests per client key to a fixed budget within a
// window. Applied to the credential endpoints, keyed by client IP, with the
// budget and window coming from AUTH_RATE_LIMIT / AUTH_RATE_WINDOW.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     int
	window    time.Duration
	lastSweep time.Time
}

type bucket struct {
	remaining int
	resetAt   time.Time
}

// NewRateLimiter returns a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow records one request for key and reports whether it fits the budget.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{remaining: rl.limit, resetAt: now.Add(rl.window)}
		rl.buckets[key] = b
	}
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// sweep drops buckets whose window has passed. Runs inline under the lock at
// most once per window, so the limiter needs no cleanup goroutine.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// GetClientIP resolves the client address used for rate-limit keying. Proxy
// headers win over the socket address; of X-Forwarded-For only the first hop
// counts, and the ephemeral port is stripped so one client maps to one key.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
