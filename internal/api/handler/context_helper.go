package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tazhate/classsync/internal/api/middleware"
	"github.com/tazhate/classsync/internal/api/response"
	"github.com/tazhate/classsync/internal/auth"
)

// MustGetIdentity returns the caller set by JWTAuth. On false a 401 has
// already been written and the handler should return.
func MustGetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(middleware.IdentityKey)
	if !exists {
		response.Unauthorized(c, "not authenticated")
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	if !ok || id.UserID == "" {
		response.Unauthorized(c, "not authenticated")
		return auth.Identity{}, false
	}
	return id, true
}

func MustGetUserID(c *gin.Context) (string, bool) {
	id, ok := MustGetIdentity(c)
	return id.UserID, ok
}
