package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type tutorStore interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Tutor, error)
	Children(ctx context.Context, tutorID string) ([]models.Student, error)
	Update(ctx context.Context, tutor *models.Tutor) error
	RefreshArchived(ctx context.Context, tutorID string) error
}

// TutorService exposes guardian records. Tutors are never created or
// archived directly: creation happens through enrolment and the archived
// flag is derived from the children's status.
type TutorService struct {
	tutors    tutorStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorService constructs a TutorService.
func NewTutorService(tutors tutorStore, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TutorService{tutors: tutors, validator: validate, logger: logger}
}

// ListByCampus returns the tutors attached to the campus.
func (s *TutorService) ListByCampus(ctx context.Context, campusID string) ([]models.Tutor, error) {
	tutors, err := s.tutors.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}
	return tutors, nil
}

// Get returns a tutor with their child roster.
func (s *TutorService) Get(ctx context.Context, id string) (*models.TutorDetail, error) {
	tutor, err := s.tutors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	children, err := s.tutors.Children(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load children")
	}
	return &models.TutorDetail{Tutor: *tutor, Children: children}, nil
}

// Update edits contact data. The campus and archived flag are managed by
// transfers and enrolment respectively and are not writable here.
func (s *TutorService) Update(ctx context.Context, id string, payload models.TutorPayload) (*models.Tutor, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}

	tutor, err := s.tutors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	tutor.Name = payload.Name
	tutor.LastName = payload.LastName
	tutor.CURP = payload.CURP
	tutor.Phone = payload.Phone

	if err := s.tutors.Update(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tutor")
	}
	return tutor, nil
}
