package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the per-account token bucket
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

type accountLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per authenticated account. Anonymous requests
// are keyed by remote address.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*accountLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its cleanup loop
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*accountLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware returns the limiting middleware. It belongs after Authenticate.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.limiterFor(key).Allow() {
			log.Warn().Str("key", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			rl.writeLimited(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if al, ok := rl.limiters[key]; ok {
		al.lastAccess = time.Now()
		return al.limiter
	}

	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters[key] = &accountLimiter{limiter: l, lastAccess: time.Now()}
	return l
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops keys idle for more than two cleanup intervals
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, al := range rl.limiters {
		if now.Sub(al.lastAccess) > ttl {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) writeLimited(w http.ResponseWriter) {
	retryAfter := 1
	if rl.config.Rate > 0 && rl.config.Rate != rate.Inf {
		retryAfter = max(1, int(math.Ceil(1.0/float64(rl.config.Rate))))
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	respondError(w, "Too many requests", http.StatusTooManyRequests)
}
