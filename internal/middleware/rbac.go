package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles.
// Super admins are always allowed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return rbac(false, roles)
}

// RequireRolesOrSelf additionally allows a user acting on their own :id.
func RequireRolesOrSelf(roles ...models.UserRole) gin.HandlerFunc {
	return rbac(true, roles)
}

func rbac(allowSelf bool, roles []models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	allowed[models.RoleSuperAdmin] = struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
