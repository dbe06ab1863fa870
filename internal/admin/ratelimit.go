package admin

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type windowEntry struct {
	requests int
	resetAt  time.Time
}

// rateLimiter is a fixed-window per-IP request limiter for the broadcast
// endpoint. Windows reset lazily on the first request after expiry.
type rateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string]*windowEntry
}

func newRateLimiter(max int, window time.Duration, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		max:     max,
		window:  window,
		now:     now,
		entries: make(map[string]*windowEntry),
	}
}

// allow records one request for ip and reports whether it is within the
// window limit, plus the seconds until the window resets when it is not.
func (l *rateLimiter) allow(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[ip]
	if !ok || now.After(e.resetAt) {
		l.entries[ip] = &windowEntry{requests: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if e.requests >= l.max {
		retryAfter := int(e.resetAt.Sub(now).Seconds()) + 1
		return false, retryAfter
	}
	e.requests++
	return true, 0
}

// middleware rejects over-limit requests with 429.
func (l *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := l.allow(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    fmt.Sprintf("Muitas requisições. Tente novamente em %d segundos.", retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}
		c.Next()
	}
}
