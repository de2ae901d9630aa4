package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityToucher records that a user was just seen.
type ActivityToucher interface {
	Touch(ctx context.Context, userID uuid.UUID) error
}

// ActivityMiddleware marks the authenticated user active on every request.
// Must run after AuthMiddleware.
func ActivityMiddleware(tracker ActivityToucher, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := c.Get(UserIDKey); ok {
			if err := tracker.Touch(c.Request.Context(), userID.(uuid.UUID)); err != nil {
				log.Warn("activity touch failed", zap.Error(err))
			}
		}
		c.Next()
	}
}
