package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

// RequirePermission allows the request when the caller's role grants every listed permission.
func RequirePermission(perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, perm := range perms {
			if !claims.Role.Can(perm) {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+string(perm)))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireRoles allows only the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
