package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus reports the limits that apply to the caller
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip":      c.ClientIP(),
			"backend": rl.Backend(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"burst":  rl.burst(rl.config.IPLimitPerMin),
					"period": "1 minute",
				},
				"classify_per_minute": gin.H{
					"limit":  rl.config.ClassifyLimitPerMin,
					"burst":  rl.burst(rl.config.ClassifyLimitPerMin),
					"period": "1 minute",
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
