package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CampusGrants(ctx context.Context, userID string) ([]string, error)
	UpdateSelectedCampus(ctx context.Context, id string, campusID *string) error
}

type authCampusRepository interface {
	List(ctx context.Context, includeArchived bool) ([]models.Campus, error)
	FindByID(ctx context.Context, id string) (*models.Campus, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Campus, error)
}

type auditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService issues and validates campus-scoped access tokens. The token
// is the sole carrier of authorization state: the authorized-campus set is
// computed once at issue time and embedded in the claims, and a session
// only becomes useful for scoped resources after a campus is selected.
type AuthService struct {
	users     authUserRepository
	campuses  authCampusRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, campuses authCampusRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, campuses: campuses, audit: audit, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns a token carrying the full
// authorized-campus set and no selected campus. The caller must select a
// campus before touching scoped resources.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.Archived {
		return nil, appErrors.Clone(appErrors.ErrArchivedAccount, "account is archived")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	campuses, err := s.authorizedCampuses(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(campuses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account has no campus access")
	}

	campusIDs := make([]string, 0, len(campuses))
	for _, c := range campuses {
		campusIDs = append(campusIDs, c.ID)
	}

	token, err := s.issueToken(user, campusIDs, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
	})

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		User: models.UserInfo{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
		Campuses: campuses,
	}, nil
}

// SelectCampus scopes the session to one authorized campus and reissues
// the token. Selecting the already-selected campus is a no-op that still
// returns a fresh token. The user row mirrors the selection for
// reporting; the token remains the source of truth.
func (s *AuthService) SelectCampus(ctx context.Context, claims *models.JWTClaims, req models.SelectCampusRequest) (*models.SelectCampusResponse, error) {
	if req.SelectedCampusID == "" {
		return nil, appErrors.Clone(appErrors.ErrCampusRequired, "selectedCampusId is required")
	}
	if !claims.AuthorizedFor(req.SelectedCampusID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campus is not authorized for this account")
	}

	campus, err := s.campuses.FindByID(ctx, req.SelectedCampusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campus")
	}
	if campus.Archived {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campus is archived")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Archived {
		return nil, appErrors.Clone(appErrors.ErrArchivedAccount, "account is archived")
	}

	token, err := s.issueToken(user, claims.CampusIDs, campus.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reissue token")
	}

	if err := s.users.UpdateSelectedCampus(ctx, user.ID, &campus.ID); err != nil {
		s.logger.Warn("failed to mirror campus selection", zap.Error(err), zap.String("user_id", user.ID))
	}

	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionSelectCampus,
		Resource:   "campus",
		ResourceID: &campus.ID,
		NewValues:  []byte(fmt.Sprintf(`{"selected_campus_id":%q}`, campus.ID)),
	})

	return &models.SelectCampusResponse{Token: token, SelectedCampusID: campus.ID}, nil
}

// Logout clears the mirrored campus selection. The handler is responsible
// for expiring the session cookie.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateSelectedCampus(ctx, userID, nil); err != nil {
		s.logger.Warn("failed to clear campus selection", zap.Error(err), zap.String("user_id", userID))
	}

	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &userID,
	})
	return nil
}

// VerifyAccount confirms the token's subject still exists and is active.
// Tokens outlive account changes, so protected routes re-check the row.
func (s *AuthService) VerifyAccount(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Archived {
		return appErrors.Clone(appErrors.ErrUnauthorized, "account is archived")
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// authorizedCampuses resolves the campus set at issue time: admins get
// every active campus, coordinators get their explicit grant list.
func (s *AuthService) authorizedCampuses(ctx context.Context, user *models.User) ([]models.Campus, error) {
	if user.Role == models.RoleAdmin {
		campuses, err := s.campuses.List(ctx, false)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campuses")
		}
		return campuses, nil
	}

	ids, err := s.users.CampusGrants(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campus grants")
	}
	if len(ids) == 0 {
		return []models.Campus{}, nil
	}
	campuses, err := s.campuses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campuses")
	}
	active := campuses[:0]
	for _, c := range campuses {
		if !c.Archived {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *AuthService) issueToken(user *models.User, campusIDs []string, selectedCampusID string) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             user.Role,
		CampusIDs:        campusIDs,
		SelectedCampusID: selectedCampusID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}
