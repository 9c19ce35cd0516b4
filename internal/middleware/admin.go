package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/uniplan/timetable-api/internal/models"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
	"github.com/uniplan/timetable-api/pkg/response"
)

// RequireAdmin blocks requests whose token lacks the admin grant. Services
// enforce the same rule again, so a route wired without this middleware
// still cannot mutate anything.
func RequireAdmin() gin.HandlerFunc {
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

		actor := models.ActorFromClaims(claims)
		if !actor.IsAdmin() {
			response.Error(c, appErrors.Clone(appErrors.ErrNotAuthorized, "admin permission required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
