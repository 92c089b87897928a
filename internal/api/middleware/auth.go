package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/api/response"
	"github.com/tazhate/classsync/internal/auth"
)

const (
	IdentityKey = "identity"
	UserIDKey   = "user_id"

	// CalendarTokenHeader carries the OAuth access token for the calendar provider
	CalendarTokenHeader = "X-Calendar-Token"
)

// UserEnsurer records the caller on first sight
type UserEnsurer interface {
	Ensure(ctx context.Context, id auth.Identity) error
}

// JWTAuth validates "Authorization: Bearer <token>" and puts the caller's
// identity into the context. users may be nil.
func JWTAuth(jwtMgr *auth.Manager, users UserEnsurer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		id, err := jwtMgr.Identity(parts[1], c.GetHeader(CalendarTokenHeader))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if users != nil {
			if err := users.Ensure(c.Request.Context(), id); err != nil {
				logger.Error("ensure user", zap.String("user_id", id.UserID), zap.Error(err))
				response.InternalError(c)
				c.Abort()
				return
			}
		}

		c.Set(IdentityKey, id)
		c.Set(UserIDKey, id.UserID)

		c.Next()
	}
}
