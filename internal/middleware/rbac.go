package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jn-uniformes/taller-api/internal/models"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/response"
)

// RequireAreas restricts a route to callers from the given areas.
func RequireAreas(areas ...models.Area) gin.HandlerFunc {
	allowed := make(map[models.Area]struct{}, len(areas))
	for _, a := range areas {
		allowed[a] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Area]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireApprovers restricts a route to the areas that resolve approvals.
func RequireApprovers() gin.HandlerFunc {
	return RequireAreas(models.AreaOperaciones, models.AreaAdmin, models.AreaEnvios)
}

// RequireTerminalAuthority restricts a route to admin and envios.
func RequireTerminalAuthority() gin.HandlerFunc {
	return RequireAreas(models.AreaAdmin, models.AreaEnvios)
}
