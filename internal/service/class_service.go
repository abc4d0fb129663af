package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Archive(ctx context.Context, id string) error
}

type classTeacherStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassService manages lesson groups. An assigned teacher must belong
// to the same campus as the class.
type ClassService struct {
	classes   classStore
	teachers  classTeacherStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(classes classStore, teachers classTeacherStore, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{classes: classes, teachers: teachers, validator: validate, logger: logger}
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// ListByCampus returns the classes at the campus.
func (s *ClassService) ListByCampus(ctx context.Context, campusID string) ([]models.Class, error) {
	classes, err := s.classes.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Create registers a class at the campus.
func (s *ClassService) Create(ctx context.Context, req models.ClassRequest, campusID, actorID string) (*models.Class, error) {
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}
	if err := s.validateTeacher(ctx, req.TeacherID, campusID); err != nil {
		return nil, err
	}

	class := &models.Class{
		Name:       req.Name,
		Generation: req.Generation,
		CampusID:   campusID,
		TeacherID:  req.TeacherID,
		Days:       req.Days,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		CreatedBy:  actorID,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update edits a class in place. The campus is immutable; moving
// students happens through transfers.
func (s *ClassService) Update(ctx context.Context, id string, req models.ClassRequest, actorID string) (*models.Class, error) {
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}

	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.validateTeacher(ctx, req.TeacherID, class.CampusID); err != nil {
		return nil, err
	}

	class.Name = req.Name
	class.Generation = req.Generation
	class.TeacherID = req.TeacherID
	class.Days = req.Days
	class.StartTime = req.StartTime
	class.EndTime = req.EndTime
	class.UpdatedBy = &actorID

	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Archive soft-deletes a class.
func (s *ClassService) Archive(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.classes.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive class")
	}
	return nil
}

func (s *ClassService) validateSchedule(req models.ClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	for _, day := range req.Days {
		if !validClassDay(day) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day name %q", day))
		}
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return nil
}

func (s *ClassService) validateTeacher(ctx context.Context, teacherID *string, campusID string) error {
	if teacherID == nil {
		return nil
	}
	teacher, err := s.teachers.FindByID(ctx, *teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.CampusID != campusID {
		return appErrors.Clone(appErrors.ErrValidation, "teacher belongs to a different campus")
	}
	return nil
}

func validClassDay(day string) bool {
	for _, valid := range models.ValidClassDays {
		if day == valid {
			return true
		}
	}
	return false
}
