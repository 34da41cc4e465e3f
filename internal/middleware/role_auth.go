package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
	"github.com/yukikurage/team-todo-api/internal/models"
)

// RequireRoles allows the request through only when the authenticated user holds one of roles.
// Must be used after RequireAuth.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, exists := GetUserRole(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		if _, ok := allowed[role]; !ok {
			apierrors.ForbiddenWithCode(c, apierrors.ErrCodeInsufficientPermissions, "Your role does not allow this action")
			return
		}

		c.Next()
	}
}

// RequireManager is RequireRoles(admin, manager).
func RequireManager() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleManager)
}

// RequireAdmin is RequireRoles(admin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
