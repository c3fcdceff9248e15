package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// minLimiterIdle bounds how quickly an idle client's limiter is dropped.
const minLimiterIdle = time.Minute

// IPRateLimiter stores a rate limiter for each IP address. Limiters of
// clients that stay idle long enough to refill their bucket are evicted.
type IPRateLimiter struct {
	ips  *cache.Cache
	mu   sync.Mutex
	r    rate.Limit
	b    int
	idle time.Duration
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	idle := minLimiterIdle
	if r > 0 && r != rate.Inf {
		if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return newIPRateLimiter(r, b, idle)
}

func newIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		ips:  cache.New(idle, idle),
		r:    r,
		b:    b,
		idle: idle,
	}
}

// GetLimiter returns the rate limiter for an IP address and extends its
// lifetime.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	var limiter *rate.Limiter
	if v, found := i.ips.Get(ip); found {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.ips.Set(ip, limiter, i.idle)
	return limiter
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	return i.ips.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return limit(NewIPRateLimiter(r, b), "too many requests")
}

// PerMinute allows n requests per minute and IP, all of which may arrive at
// once. Used for the login endpoint.
func PerMinute(n int) gin.HandlerFunc {
	if n <= 0 {
		n = 1
	}
	return limit(NewIPRateLimiter(rate.Every(time.Minute/time.Duration(n)), n), "too many login attempts, try again later")
}

func limit(limiter *IPRateLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": message})
			return
		}
		c.Next()
	}
}
