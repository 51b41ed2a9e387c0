package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per client address.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (l *clientLimiters) get(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.buckets[addr]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.buckets[addr] = limiter
	}
	return limiter
}

// RateLimiter limits requests per client address. When ipHeader is set
// (reverse-proxy deployments), the address is taken from that header
// instead of the connection.
func RateLimiter(limit rate.Limit, burst int, ipHeader string) gin.HandlerFunc {
	limiters := newClientLimiters(limit, burst)
	return func(c *gin.Context) {
		addr := c.ClientIP()
		if ipHeader != "" {
			if v := c.GetHeader(ipHeader); v != "" {
				addr = v
			}
		}
		if !limiters.get(addr).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
