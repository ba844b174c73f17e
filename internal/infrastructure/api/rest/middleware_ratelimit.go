package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter provides rate limiting functionality
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*clientInfo
	limit   int
	window  time.Duration
	cleanup time.Duration
}

type clientInfo struct {
	attempts  int
	firstSeen time.Time
	blocked   bool
	blockedAt time.Time
}

// NewRateLimiter creates a new rate limiter
// limit: max attempts per window
// window: time window for counting attempts
// blockDuration: how long to block after exceeding limit
func NewRateLimiter(limit int, window, blockDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientInfo),
		limit:   limit,
		window:  window,
		cleanup: blockDuration,
	}

	// Start cleanup goroutine
	go rl.cleanupLoop()

	return rl
}

// Middleware returns a gin middleware for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.Allow(clientIP) {
			respondErrorWithDetails(c, http.StatusTooManyRequests, "too many requests", "RATE_LIMIT_EXCEEDED", map[string]interface{}{
				"retry_after": int(rl.cleanup.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[key]

	if !exists {
		rl.clients[key] = &clientInfo{
			attempts:  1,
			firstSeen: now,
		}
		return true
	}

	// Check if blocked
	if client.blocked {
		if now.Sub(client.blockedAt) > rl.cleanup {
			// Unblock after cleanup period
			client.blocked = false
			client.attempts = 1
			client.firstSeen = now
			return true
		}
		return false
	}

	// Check if window has expired
	if now.Sub(client.firstSeen) > rl.window {
		client.attempts = 1
		client.firstSeen = now
		return true
	}

	// Increment attempts
	client.attempts++

	// Check if limit exceeded
	if client.attempts > rl.limit {
		client.blocked = true
		client.blockedAt = now
		return false
	}

	return true
}

// Reset resets the rate limit for a specific key
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, key)
}

// cleanupLoop periodically removes expired entries
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, client := range rl.clients {
			// Remove if not blocked and window expired
			if !client.blocked && now.Sub(client.firstSeen) > rl.window {
				delete(rl.clients, key)
			}
			// Remove if blocked period expired
			if client.blocked && now.Sub(client.blockedAt) > rl.cleanup*2 {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}
