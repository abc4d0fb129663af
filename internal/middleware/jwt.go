package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/service"
	"github.com/harmonia-mx/campus-api/pkg/config"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid access token, taken from the
// Authorization header or, failing that, the session cookie. Browser
// clients ride on the httpOnly cookie; API clients send the bearer
// header.
func JWT(authService *service.AuthService, cookie config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && cookie.Name != "" {
			if value, err := c.Cookie(cookie.Name); err == nil {
				token = value
			}
		}
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if err := authService.VerifyAccount(c.Request.Context(), claims.UserID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
