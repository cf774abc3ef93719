package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*limiterEntry
	every   rate.Limit
	burst   int
	proxies TrustedProxies
}

// NewRateLimiter allows perMinute requests per key with the given burst.
// A non-positive perMinute disables limiting. Clients are keyed by connection
// address; X-Forwarded-For is read only when the peer is one of proxies.
func NewRateLimiter(perMinute, burst int, proxies TrustedProxies) *RateLimiter {
	every := rate.Inf
	if perMinute > 0 {
		every = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limits:  make(map[string]*limiterEntry),
		every:   every,
		burst:   burst,
		proxies: proxies,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limits[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}

	e := &limiterEntry{
		limiter:  rate.NewLimiter(rl.every, rl.burst),
		lastSeen: time.Now(),
	}
	rl.limits[key] = e
	return e.limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Cleanup forgets keys idle for longer than idle and returns how many were dropped.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for key, e := range rl.limits {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			removed++
		}
	}
	return removed
}

// RateLimit returns middleware that enforces per-client limits.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight requests are not counted
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(rl.proxies.ClientIP(r)) {
				retryAfter := 1
				if rl.every != rate.Inf && rl.every > 0 {
					retryAfter = int(time.Duration(float64(time.Second)/float64(rl.every)).Seconds()) + 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
