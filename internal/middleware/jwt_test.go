package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/internal/service"
	"github.com/harmonia-mx/campus-api/pkg/config"
)

const testSecret = "middleware-test-secret"

type activeUserStub struct{}

func (activeUserStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (activeUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleCoordinator}, nil
}

func (activeUserStub) CampusGrants(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (activeUserStub) UpdateSelectedCampus(ctx context.Context, id string, campusID *string) error {
	return nil
}

func testAuthService() *service.AuthService {
	return service.NewAuthService(activeUserStub{}, nil, nil, nil, nil, service.AuthConfig{
		TokenSecret: testSecret,
		TokenExpiry: time.Hour,
		Issuer:      "campus-api",
	})
}

func signTestToken(t *testing.T, selectedCampusID string) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:           "user-1",
		Email:            "coordinator@harmonia.mx",
		Role:             models.RoleCoordinator,
		CampusIDs:        []string{"campus-a", "campus-b"},
		SelectedCampusID: selectedCampusID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "campus-api",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func protectedRouter(cookie config.CookieConfig, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{JWT(testAuthService(), cookie)}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "campus": claims.SelectedCampusID})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTRejectsMissingToken(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTAcceptsBearerHeader(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "campus-a"))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["user_id"] != "user-1" {
		t.Fatalf("unexpected user: %s", body["user_id"])
	}
}

func TestJWTFallsBackToSessionCookie(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "campus_session", Value: signTestToken(t, "campus-b")})
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "campus-a")+"x")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

type archivedUserStub struct {
	activeUserStub
}

func (archivedUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleCoordinator, Archived: true}, nil
}

func TestJWTRejectsArchivedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewAuthService(archivedUserStub{}, nil, nil, nil, nil, service.AuthConfig{
		TokenSecret: testSecret,
		TokenExpiry: time.Hour,
		Issuer:      "campus-api",
	})
	router := gin.New()
	router.GET("/protected", JWT(svc, config.CookieConfig{Name: "campus_session"}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "campus-a"))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireCampusBlocksUnscopedSession(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"}, RequireCampus())

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, ""))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "CAMPUS_REQUIRED" {
		t.Fatalf("unexpected code: %s", body.Code)
	}
}

func TestRequireCampusPassesScopedSession(t *testing.T) {
	router := protectedRouter(config.CookieConfig{Name: "campus_session"}, RequireCampus())

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "campus-a"))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
