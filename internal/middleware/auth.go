package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-todo-api/internal/auth"
	"github.com/yukikurage/team-todo-api/internal/constants"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/services"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireAuth checks if the request carries a valid bearer token
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, constants.BearerPrefix) {
			apierrors.Unauthorized(c, "")
			return
		}

		claims, err := validator.Validate(c.Request.Context(), strings.TrimPrefix(header, constants.BearerPrefix))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenRevoked):
				apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeTokenRevoked, "Token has been revoked")
			case errors.Is(err, services.ErrAccountDeleted):
				apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeAccountDeleted, "Account has been deleted")
			case errors.Is(err, auth.ErrInvalidToken):
				apierrors.Unauthorized(c, "Invalid or expired token")
			default:
				apierrors.InternalError(c, "")
			}
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyUserRole, claims.Role)
		c.Set(constants.ContextKeyTokenID, claims.ID)
		c.Set(constants.ContextKeyClaims, claims)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserRole retrieves the current user's role from context
func GetUserRole(c *gin.Context) (models.Role, bool) {
	role, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return "", false
	}
	r, ok := role.(models.Role)
	return r, ok
}

// GetClaims retrieves the validated token claims from context
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(constants.ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// GetActor combines the user id and role set by RequireAuth
func GetActor(c *gin.Context) (services.Actor, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, ok := GetUserRole(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: id, Role: role}, true
}
