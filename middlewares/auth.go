package middlewares

import (
	"context"

	"github.com/gin-gonic/gin"

	"collegeevents/models"
	"collegeevents/utils"
)

const userKey = "user"

// UserResolver turns a bearer token into the live user record.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (models.User, error)
}

// Authenticate 驗 Bearer token，把 user 放進 context
func Authenticate(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := utils.ExtractToken(c)
		if err != nil {
			utils.Fail(c, utils.Unauthorized("Not authorized. No token."))
			return
		}
		user, err := users.ResolveUser(c.Request.Context(), token)
		if err != nil {
			utils.Fail(c, err)
			return
		}
		c.Set(userKey, &user)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil || !u.IsAdmin() {
		utils.Fail(c, utils.Forbidden("Admin access only"))
		return
	}
	c.Next()
}

func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
