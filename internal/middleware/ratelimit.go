package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/internal/services"
)

// RateLimit throttles by authenticated user when available, falling
// back to client IP for anonymous callers.
func RateLimit(limiter *services.RateLimitService, cfg *config.Config, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerKey := c.ClientIP()
		limit := cfg.Auth.RateLimit.Anonymous

		if userID, ok := UserID(c); ok {
			callerKey = userID.String()
			limit = cfg.Auth.RateLimit.Authenticated
			if c.GetBool(ContextIsAdmin) {
				limit = cfg.Auth.RateLimit.Admin
			}
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), callerKey, limit)
		if err != nil {
			logger.WithError(err).Warn("Rate limit check errored")
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
