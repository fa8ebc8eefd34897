package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"photo-speech/internal/shared/server/respond"
	"photo-speech/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"

	// bucketSweepInterval bounds how often idle buckets are dropped.
	bucketSweepInterval = time.Minute
)

var errRateLimited = errors.New("too many uploads, try again shortly")

// RateLimitRule is a token bucket refilled at Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig selects a rule per request. Requests whose group has no rule pass through.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one token bucket per principal and group. Buckets that have
// refilled completely are dropped, since a fresh bucket behaves the same.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		now:     now,
	}
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(c.ClientIP())
		key := principal + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		telemetry.Warn("http.rate_limited", map[string]any{
			"request_id":     RequestIDFromContext(c),
			"group":          group,
			"client_ip":      principal,
			"retry_after_ms": retryAfterMs,
		})
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":        "rate_limited",
				"retryAfterMs": retryAfterMs,
			})
			return
		}
		respond.Failure(c, http.StatusTooManyRequests, errRateLimited)
	}
}

// Allow takes one token for key and, when none is left, reports how long until one is.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
	limiter, ok := l.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		l.buckets[key] = limiter
	}

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < bucketSweepInterval {
		return
	}
	l.lastSweep = now
	for key, limiter := range l.buckets {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(l.buckets, key)
		}
	}
}
