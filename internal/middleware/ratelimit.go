package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the caller's address. The award endpoint is called by the
// app backend behind a reverse proxy, so X-Real-IP and the first hop of
// X-Forwarded-For are trusted before falling back to the socket address.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count  int
	resets time.Time
}

// RateLimiter is an in-memory fixed-window counter keyed by caller.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]window),
	}
}

// Allow reports whether key may make another request. The first request after
// a window expires opens a fresh one.
func (rl *RateLimiter) Allow(key string, limit int, d time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resets) {
		rl.windows[key] = window{count: 1, resets: now.Add(d)}
		return true
	}
	w.count++
	rl.windows[key] = w
	return w.count <= limit
}

// Cleanup drops expired windows. Runs periodically from main.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.After(w.resets) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit returns middleware that rejects requests over the limit with 429
// and a Retry-After hint.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, d) {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds())))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
