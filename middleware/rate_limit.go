package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client over a fixed window. Each
// client's window starts on its first request, so one busy client never
// resets the count for everyone else.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	rate    int
	window  time.Duration
}

type clientWindow struct {
	count   int
	started time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
	}
}

// Allow records a request for the client and reports whether it fits in
// the current window. When it does not, the second return value is the
// time until the window rolls over.
func (l *RateLimiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.clients[client]
	if w == nil || now.Sub(w.started) > l.window {
		l.clients[client] = &clientWindow{count: 1, started: now}
		return true, 0
	}
	if w.count >= l.rate {
		return false, l.window - now.Sub(w.started)
	}
	w.count++
	return true, 0
}

// RateLimit limits requests per client IP. Paths under the exempt
// prefixes skip the limiter entirely; signature-provider webhook
// deliveries go there, since dropping a retry would stall a document's
// state until the next redelivery.
func RateLimit(rate int, window time.Duration, exemptPrefixes ...string) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		clientIP := c.ClientIP()
		ok, retryAfter := limiter.Allow(clientIP)
		if !ok {
			slog.Warn("rate limit exceeded",
				"client_ip", clientIP,
				"request_id", GetRequestID(c),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
