package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// RequireCampus rejects requests whose session has not been scoped to a
// campus yet. Routes behind it can trust claims.SelectedCampusID to be
// a campus the token authorizes.
func RequireCampus() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if claims.SelectedCampusID == "" {
			response.Error(c, appErrors.ErrCampusRequired)
			c.Abort()
			return
		}
		if !claims.AuthorizedFor(claims.SelectedCampusID) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
