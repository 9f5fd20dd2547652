// Package middleware holds HTTP middleware for the read-only results API.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter throttles the results API per client IP: one global limit,
// applied router-wide to every route the API serves.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	logger   zerolog.Logger

	r rate.Limit
	b int

	cleanupInterval time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond per client
// IP, with the given burst. Starts a background goroutine that evicts
// IPs unseen for 3 minutes every cleanupInterval.
func NewRateLimiter(requestsPerSecond float64, burst int, cleanupInterval time.Duration, logger zerolog.Logger) *RateLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	rl := &RateLimiter{
		visitors:        make(map[string]*visitor),
		logger:          logger,
		r:               rate.Limit(requestsPerSecond),
		b:               burst,
		cleanupInterval: cleanupInterval,
	}
	go rl.cleanupVisitors()
	return rl
}

// Limit wraps next with per-IP rate limiting.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip) {
			rl.logger.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		threshold := time.Now().Add(-3 * time.Minute)
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(threshold) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
