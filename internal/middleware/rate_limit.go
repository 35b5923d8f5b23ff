// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/rfp-backend/internal/config"
	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/utils"
)

const (
	defaultRequestsPerSecond = 10
	defaultBurst             = 20
	defaultAIPerMinute       = 10
	defaultAIBurst           = 5

	visitorIdleTTL = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client. Authenticated clients are
// keyed by token subject, anonymous ones by IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	lastGC   time.Time
	now      func() time.Time
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// NewRateLimiters builds the general and language model limiters, falling
// back to defaults for unset values.
func NewRateLimiters(cfg config.RateLimitConfig) (general, ai *RateLimiter) {
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	perMinute, aiBurst := cfg.AIPerMinute, cfg.AIBurst
	if perMinute <= 0 {
		perMinute = defaultAIPerMinute
	}
	if aiBurst <= 0 {
		aiBurst = defaultAIBurst
	}

	return NewRateLimiter(rate.Limit(rps), burst), NewRateLimiter(rate.Limit(perMinute/60), aiBurst)
}

// allow takes a token for key. Idle visitors are swept at most once per
// idle TTL while holding the lock.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastGC) > visitorIdleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientKey(c)) {
			c.Header("Retry-After", "1")
			message := i18n.T(utils.GetLangFromContext(c), i18n.KeyRateLimited)
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", message)
			return
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if subject := c.GetString("subject"); subject != "" {
		return "sub:" + subject
	}
	return "ip:" + c.ClientIP()
}

func abortWithError(c *gin.Context, status int, code, message string) {
	utils.ErrorResponse(c, status, code, message, nil)
	c.Abort()
}
