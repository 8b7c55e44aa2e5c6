// Package ratelimit throttles HTTP clients with one token bucket per IP.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/ecef2eci/internal/metrics"
)

// Config holds rate limiting configuration loaded from environment variables.
type Config struct {
	Rate       float64       // Sustained requests per second per IP; <= 0 disables limiting.
	Burst      int           // Bucket size (default: 2x Rate).
	TrustProxy bool          // Honor X-Forwarded-For / X-Real-IP.
	IdleTTL    time.Duration // Evict buckets unused for this long (default: 10m).
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks a token bucket per client IP.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   Config
	now      func() time.Time
}

// New creates a per-IP limiter.
func New(config Config) *Limiter {
	if config.Burst < 1 {
		config.Burst = max(1, int(2*config.Rate))
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		config:   config,
		now:      time.Now,
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l.config.Rate > 0
}

// Allow reports whether a request from ip may proceed, consuming a token if so.
func (l *Limiter) Allow(ip string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.config.Rate), l.config.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep evicts buckets idle for longer than IdleTTL and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.config.IdleTTL)
	removed := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked client IPs.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Run sweeps idle buckets periodically until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.config.IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Middleware rejects requests over the per-IP budget with 429. Paths for
// which exempt returns true are never limited.
func (l *Limiter) Middleware(exempt func(path string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Enabled() || (exempt != nil && exempt(r.URL.Path)) {
				next.ServeHTTP(w, r)
				return
			}

			if !l.Allow(ClientIP(r, l.config.TrustProxy)) {
				metrics.IncRateLimited()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the client address of r under this limiter's proxy policy.
func (l *Limiter) ClientIP(r *http.Request) string {
	return ClientIP(r, l.config.TrustProxy)
}

// ClientIP extracts the client IP address from the request.
// With trustProxy, the leftmost X-Forwarded-For entry and then X-Real-IP are
// used when they parse as IPs; otherwise RemoteAddr (port stripped) is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
