package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log *models.AuditLog) {
	m.logs = append(m.logs, log)
}

type mockAuthUsers struct {
	userByEmail    *models.User
	userByID       *models.User
	findByEmailErr error
	findByIDErr    error
	grants         []string
	grantsErr      error
	selected       *string
	selectedSet    bool
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthUsers) CampusGrants(ctx context.Context, userID string) ([]string, error) {
	if m.grantsErr != nil {
		return nil, m.grantsErr
	}
	return m.grants, nil
}

func (m *mockAuthUsers) UpdateSelectedCampus(ctx context.Context, id string, campusID *string) error {
	m.selected = campusID
	m.selectedSet = true
	return nil
}

type mockAuthCampuses struct {
	all    []models.Campus
	byID   map[string]*models.Campus
	byIDs  []models.Campus
	getErr error
}

func (m *mockAuthCampuses) List(ctx context.Context, includeArchived bool) ([]models.Campus, error) {
	return m.all, nil
}

func (m *mockAuthCampuses) FindByID(ctx context.Context, id string) (*models.Campus, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	campus, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return campus, nil
}

func (m *mockAuthCampuses) FindByIDs(ctx context.Context, ids []string) ([]models.Campus, error) {
	return m.byIDs, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testAuthConfig() AuthConfig {
	return AuthConfig{TokenSecret: "test-secret", TokenExpiry: time.Hour, Issuer: "campus-api"}
}

func TestAuthServiceLoginAdminGetsEveryActiveCampus(t *testing.T) {
	users := &mockAuthUsers{userByEmail: &models.User{
		ID:           "admin-1",
		Email:        "admin@harmonia.mx",
		Role:         models.RoleAdmin,
		PasswordHash: hashPassword(t, "secret123"),
	}}
	campuses := &mockAuthCampuses{all: []models.Campus{
		{ID: "campus-a", Name: "Centro"},
		{ID: "campus-b", Name: "Norte"},
	}}
	audit := &mockAudit{}
	svc := NewAuthService(users, campuses, audit, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@harmonia.mx", Password: "secret123"})
	require.NoError(t, err)
	require.Len(t, resp.Campuses, 2)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"campus-a", "campus-b"}, claims.CampusIDs)
	assert.Empty(t, claims.SelectedCampusID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, audit.logs[0].Action)
}

func TestAuthServiceLoginCoordinatorGetsGrantList(t *testing.T) {
	users := &mockAuthUsers{
		userByEmail: &models.User{
			ID:           "coord-1",
			Email:        "coord@harmonia.mx",
			Role:         models.RoleCoordinator,
			PasswordHash: hashPassword(t, "secret123"),
		},
		grants: []string{"campus-a"},
	}
	campuses := &mockAuthCampuses{byIDs: []models.Campus{{ID: "campus-a", Name: "Centro"}}}
	svc := NewAuthService(users, campuses, &mockAudit{}, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "coord@harmonia.mx", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"campus-a"}, claims.CampusIDs)
}

func TestAuthServiceLoginArchivedAccount(t *testing.T) {
	users := &mockAuthUsers{userByEmail: &models.User{
		ID:           "user-1",
		Email:        "old@harmonia.mx",
		Role:         models.RoleCoordinator,
		Archived:     true,
		PasswordHash: hashPassword(t, "secret123"),
	}}
	svc := NewAuthService(users, &mockAuthCampuses{}, &mockAudit{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "old@harmonia.mx", Password: "secret123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrArchivedAccount.Code, appErr.Code)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	users := &mockAuthUsers{findByEmailErr: sql.ErrNoRows}
	svc := NewAuthService(users, &mockAuthCampuses{}, &mockAudit{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@harmonia.mx", Password: "whatever1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	users = &mockAuthUsers{userByEmail: &models.User{
		ID:           "user-1",
		Email:        "real@harmonia.mx",
		Role:         models.RoleCoordinator,
		PasswordHash: hashPassword(t, "rightpass"),
	}, grants: []string{"campus-a"}}
	svc = NewAuthService(users, &mockAuthCampuses{byIDs: []models.Campus{{ID: "campus-a"}}}, &mockAudit{}, nil, nil, testAuthConfig())

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "real@harmonia.mx", Password: "wrongpass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSelectCampusScopesTokenAndMirrorsUser(t *testing.T) {
	user := &models.User{ID: "coord-1", Email: "coord@harmonia.mx", Role: models.RoleCoordinator}
	users := &mockAuthUsers{userByID: user}
	campuses := &mockAuthCampuses{byID: map[string]*models.Campus{
		"campus-a": {ID: "campus-a", Name: "Centro"},
	}}
	audit := &mockAudit{}
	svc := NewAuthService(users, campuses, audit, nil, nil, testAuthConfig())

	claims := &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator, CampusIDs: []string{"campus-a", "campus-b"}}
	resp, err := svc.SelectCampus(context.Background(), claims, models.SelectCampusRequest{SelectedCampusID: "campus-a"})
	require.NoError(t, err)
	assert.Equal(t, "campus-a", resp.SelectedCampusID)

	scoped, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "campus-a", scoped.SelectedCampusID)
	assert.Equal(t, claims.CampusIDs, scoped.CampusIDs)

	require.True(t, users.selectedSet)
	require.NotNil(t, users.selected)
	assert.Equal(t, "campus-a", *users.selected)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSelectCampus, audit.logs[0].Action)
}

func TestAuthServiceSelectCampusIsIdempotent(t *testing.T) {
	users := &mockAuthUsers{userByID: &models.User{ID: "coord-1", Role: models.RoleCoordinator}}
	campuses := &mockAuthCampuses{byID: map[string]*models.Campus{
		"campus-a": {ID: "campus-a"},
	}}
	svc := NewAuthService(users, campuses, &mockAudit{}, nil, nil, testAuthConfig())

	claims := &models.JWTClaims{UserID: "coord-1", CampusIDs: []string{"campus-a"}, SelectedCampusID: "campus-a"}
	resp, err := svc.SelectCampus(context.Background(), claims, models.SelectCampusRequest{SelectedCampusID: "campus-a"})
	require.NoError(t, err)

	scoped, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "campus-a", scoped.SelectedCampusID)
}

func TestAuthServiceSelectCampusRequiresCampusID(t *testing.T) {
	users := &mockAuthUsers{userByID: &models.User{ID: "coord-1", Role: models.RoleCoordinator}}
	svc := NewAuthService(users, &mockAuthCampuses{}, &mockAudit{}, nil, nil, testAuthConfig())

	claims := &models.JWTClaims{UserID: "coord-1", CampusIDs: []string{"campus-a"}}
	_, err := svc.SelectCampus(context.Background(), claims, models.SelectCampusRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCampusRequired.Code, appErrors.FromError(err).Code)
	assert.False(t, users.selectedSet)
}

func TestAuthServiceSelectCampusRejectsUnauthorized(t *testing.T) {
	users := &mockAuthUsers{userByID: &models.User{ID: "coord-1", Role: models.RoleCoordinator}}
	campuses := &mockAuthCampuses{byID: map[string]*models.Campus{
		"campus-b": {ID: "campus-b"},
	}}
	svc := NewAuthService(users, campuses, &mockAudit{}, nil, nil, testAuthConfig())

	claims := &models.JWTClaims{UserID: "coord-1", CampusIDs: []string{"campus-a"}}
	_, err := svc.SelectCampus(context.Background(), claims, models.SelectCampusRequest{SelectedCampusID: "campus-b"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, users.selectedSet)
}

func TestAuthServiceLogoutClearsSelection(t *testing.T) {
	users := &mockAuthUsers{}
	audit := &mockAudit{}
	svc := NewAuthService(users, &mockAuthCampuses{}, audit, nil, nil, testAuthConfig())

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	require.True(t, users.selectedSet)
	assert.Nil(t, users.selected)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLogout, audit.logs[0].Action)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&mockAuthUsers{}, &mockAuthCampuses{}, &mockAudit{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := NewAuthService(&mockAuthUsers{}, &mockAuthCampuses{}, &mockAudit{}, nil, nil, AuthConfig{TokenSecret: "other-secret", TokenExpiry: time.Hour})
	token, err := other.issueToken(&models.User{ID: "user-1"}, []string{"campus-a"}, "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
