package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/middleware"
	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// campusScope resolves the campus a listing runs against: an explicit
// campus_id query param when the session is authorized for it, the
// selected campus otherwise.
func campusScope(c *gin.Context, claims *models.JWTClaims) (string, error) {
	requested := c.Query("campus_id")
	if requested == "" || requested == claims.SelectedCampusID {
		return claims.SelectedCampusID, nil
	}
	if !claims.AuthorizedFor(requested) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "campus not authorized")
	}
	return requested, nil
}
