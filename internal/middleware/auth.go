package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
	EmailKey    = "email"
)

// AuthMiddleware validates bearer tokens and injects user claims into context
func AuthMiddleware(verifier *auth.Verifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperror.Unauthorized("authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abort(c, apperror.Unauthorized("invalid authorization format, use: Bearer <token>"))
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), parts[1])
		switch {
		case errors.Is(err, auth.ErrRevokedToken):
			abort(c, apperror.Unauthorized("token has been revoked"))
			return
		case errors.Is(err, auth.ErrInvalidToken):
			abort(c, apperror.Unauthorized("invalid or expired token"))
			return
		case err != nil:
			// blacklist unreachable: fail closed
			log.Error("auth: token check failed", zap.Error(err))
			abort(c, apperror.Internal(err))
			return
		}

		// Store user info in context for downstream handlers
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserNameKey, claims.Name)
		c.Set(EmailKey, claims.Email)

		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), model.ErrorResponse{
		Error: apperror.MessageOf(err),
		Code:  string(apperror.CodeOf(err)),
	})
}
