package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EquidnaMX/stag-herd/internal/clock"
)

// rateLimiter is a fixed-window counter keyed by client IP.
type rateLimiter struct {
	limit  int
	window time.Duration
	clock  clock.Clock
	mu     sync.Mutex
	items  map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		clock:  clk,
		items:  make(map[string]*rateLimitEntry),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.windowStart) >= r.window {
		if entry == nil {
			r.evict(now)
		}
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}

// evict drops closed windows so idle addresses do not accumulate.
func (r *rateLimiter) evict(now time.Time) {
	for key, entry := range r.items {
		if now.Sub(entry.windowStart) >= r.window {
			delete(r.items, key)
		}
	}
}

// WebhookRateLimit rejects a client IP once it exceeds the window budget,
// answering with the plain message body providers expect.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return s.rateLimit(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
	})
}

func (s *Server) APIRateLimit() gin.HandlerFunc {
	return s.rateLimit(func(c *gin.Context) {
		AbortWithError(c, ErrRateLimited)
	})
}

func (s *Server) rateLimit(onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		onLimited(c)
	}
}
