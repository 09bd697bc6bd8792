package ratelimit

import (
	"net"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/cx-tal-miterani/seat-inventory/internal/identity"
)

// DefaultMaxCallers bounds the tracked callers when the config leaves it unset
const DefaultMaxCallers = 10000

// CallerLimiter keeps one token bucket per caller. Buckets live in an LRU
// cache, so callers beyond MaxCallers evict the least recently seen one.
type CallerLimiter struct {
	mu        sync.Mutex
	limiters  *lru.Cache
	defaults  RateLimitConfig
	overrides map[string]RateLimitConfig
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	MaxCallers        int
}

func NewCallerLimiter(config RateLimitConfig) *CallerLimiter {
	if config.MaxCallers <= 0 {
		config.MaxCallers = DefaultMaxCallers
	}
	// lru.New fails only for a non-positive size.
	cache, _ := lru.New(config.MaxCallers)

	return &CallerLimiter{
		limiters:  cache,
		defaults:  config,
		overrides: make(map[string]RateLimitConfig),
	}
}

func (l *CallerLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters.Get(key); ok {
		return limiter.(*rate.Limiter)
	}

	cfg, ok := l.overrides[key]
	if !ok {
		cfg = l.defaults
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)
	l.limiters.Add(key, limiter)
	return limiter
}

// SetCallerLimit gives an authenticated caller its own rate and burst. The
// override outlives eviction of the caller's bucket.
func (l *CallerLimiter) SetCallerLimit(caller string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := callerKey(caller)
	l.overrides[key] = RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}
	l.limiters.Remove(key)
}

// Allow reports whether the request key may proceed now, consuming a token
func (l *CallerLimiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// Tracked returns the number of buckets currently held
func (l *CallerLimiter) Tracked() int {
	return l.limiters.Len()
}

// Middleware rejects requests over the caller's budget with reject.
// Anonymous requests are keyed by client address.
func Middleware(l *CallerLimiter, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(requestKey(r)) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(caller string) string {
	return "caller:" + caller
}

func requestKey(r *http.Request) string {
	if caller, ok := identity.FromContext(r.Context()); ok {
		return callerKey(caller)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
