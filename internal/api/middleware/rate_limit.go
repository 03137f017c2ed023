package middleware

import (
	"fmt"
	"net/http"
	"time"

	"rony-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	presenceRepo *repository.PresenceRepository
}

func NewRateLimitMiddleware(presenceRepo *repository.PresenceRepository) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		presenceRepo: presenceRepo,
	}
}

// RateLimit creates a rate limiting middleware keyed by authenticated user
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		endpoint := c.Request.URL.Path
		key := fmt.Sprintf("rate_limit:%v:%s", userID, endpoint)

		allowed, err := rm.presenceRepo.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimitIP creates a rate limiting middleware for public routes based on IP address
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := fmt.Sprintf("rate_limit_ip:%s:%s", clientIP, endpoint)

		allowed, err := rm.presenceRepo.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
