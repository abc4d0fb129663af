package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	"github.com/harmonia-mx/campus-api/pkg/config"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service. Tokens travel
// both in the response body (for API clients) and in an httpOnly
// session cookie (for browser clients).
type AuthHandler struct {
	service *service.AuthService
	cookie  config.CookieConfig
	maxAge  int
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookie config.CookieConfig, jwt config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		service: svc,
		cookie:  cookie,
		maxAge:  int(jwt.Expiration.Seconds()),
	}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password; the issued token carries no campus selection yet
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Token)
	response.JSON(c, http.StatusOK, res, nil)
}

// SelectCampus godoc
// @Summary Select working campus
// @Description Scope the session to one authorized campus; reissues the token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SelectCampusRequest true "Campus selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/select-campus [post]
func (h *AuthHandler) SelectCampus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SelectCampusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.SelectCampus(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Token)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Clears the campus selection and the session cookie
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	h.clearSessionCookie(c)
	response.NoContent(c)
}

// Me godoc
// @Summary Get current session
// @Description Returns the authenticated user's info and current campus scope
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"id":                 claims.UserID,
		"email":              claims.Email,
		"role":               claims.Role,
		"campus_ids":         claims.CampusIDs,
		"selected_campus_id": claims.SelectedCampusID,
	}, nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(sameSiteMode(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, token, h.maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(sameSiteMode(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
