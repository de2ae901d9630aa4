package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimitMiddleware throttles the authenticated user on the routes it
// wraps. A limiter outage lets requests through.
func RateLimitMiddleware(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(UserIDKey)
		if !ok {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), userID.(uuid.UUID).String())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds()+0.5)))
			abort(c, apperror.ErrRateLimited)
			return
		}
		c.Next()
	}
}
