package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

const campusCacheKey = "campuses:active"

type campusStore interface {
	List(ctx context.Context, includeArchived bool) ([]models.Campus, error)
	FindByID(ctx context.Context, id string) (*models.Campus, error)
	Create(ctx context.Context, campus *models.Campus) error
	Update(ctx context.Context, campus *models.Campus) error
	Archive(ctx context.Context, id string) error
}

type campusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CampusService manages the campus catalogue. The active list is the
// hottest read in the system (every login resolves it) so it is cached.
type CampusService struct {
	campuses  campusStore
	cache     campusCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCampusService constructs a CampusService.
func NewCampusService(campuses campusStore, cache campusCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CampusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CampusService{campuses: campuses, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns campuses. Only the active-campus list is cached.
func (s *CampusService) List(ctx context.Context, includeArchived bool) ([]models.Campus, error) {
	if !includeArchived && s.cache != nil {
		var cached []models.Campus
		if err := s.cache.Get(ctx, campusCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("campus cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	campuses, err := s.campuses.List(ctx, includeArchived)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campuses")
	}

	if !includeArchived && s.cache != nil {
		if err := s.cache.Set(ctx, campusCacheKey, campuses, s.cacheTTL); err != nil {
			s.logger.Warn("campus cache write failed", zap.Error(err))
		}
	}
	return campuses, nil
}

// Get returns a single campus.
func (s *CampusService) Get(ctx context.Context, id string) (*models.Campus, error) {
	campus, err := s.campuses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campus")
	}
	return campus, nil
}

// Create registers a campus.
func (s *CampusService) Create(ctx context.Context, req models.CampusRequest) (*models.Campus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campus payload")
	}

	campus := &models.Campus{
		Name:          req.Name,
		Address:       req.Address,
		ContactPhone:  req.ContactPhone,
		CoordinatorID: req.CoordinatorID,
	}
	if err := s.campuses.Create(ctx, campus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campus")
	}
	s.invalidate(ctx)
	return campus, nil
}

// Update edits a campus.
func (s *CampusService) Update(ctx context.Context, id string, req models.CampusRequest) (*models.Campus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campus payload")
	}

	campus, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	campus.Name = req.Name
	campus.Address = req.Address
	campus.ContactPhone = req.ContactPhone
	campus.CoordinatorID = req.CoordinatorID

	if err := s.campuses.Update(ctx, campus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update campus")
	}
	s.invalidate(ctx)
	return campus, nil
}

// Archive soft-deletes a campus. Existing scoped records keep their
// campus reference; new sessions can no longer select it.
func (s *CampusService) Archive(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.campuses.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive campus")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CampusService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, campusCacheKey); err != nil {
		s.logger.Warn("campus cache invalidation failed", zap.Error(err))
	}
}
