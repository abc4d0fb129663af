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

type teacherStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Archive(ctx context.Context, id string) error
}

// TeacherService manages teaching staff at a campus.
type TeacherService struct {
	teachers  teacherStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherStore, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{teachers: teachers, validator: validate, logger: logger}
}

// Get returns a single teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// ListByCampus returns the active staff at the campus.
func (s *TeacherService) ListByCampus(ctx context.Context, campusID string) ([]models.Teacher, error) {
	teachers, err := s.teachers.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Create registers a teacher at the campus.
func (s *TeacherService) Create(ctx context.Context, req models.TeacherRequest, campusID, actorID string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher := &models.Teacher{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		CampusID:  campusID,
		CreatedBy: actorID,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update edits a teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req models.TeacherRequest, actorID string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	teacher.FirstName = req.FirstName
	teacher.LastName = req.LastName
	teacher.Phone = req.Phone
	teacher.Email = req.Email
	teacher.UpdatedBy = &actorID

	if err := s.teachers.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Archive soft-deletes a teacher. Classes keep their reference.
func (s *TeacherService) Archive(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.teachers.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive teacher")
	}
	return nil
}
