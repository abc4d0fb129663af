package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	"github.com/harmonia-mx/campus-api/pkg/config"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	PreviousClasses(ctx context.Context, studentID string) ([]string, error)
	ExistsByCURP(ctx context.Context, curp, excludeID, campusID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type studentTutorStore interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByCURP(ctx context.Context, curp, campusID string) (*models.Tutor, error)
	Create(ctx context.Context, tutor *models.Tutor) error
	RefreshArchived(ctx context.Context, tutorID string) error
}

type studentClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// StudentService manages enrolment. Creating a student finds or creates
// the guardian by CURP, and every status change rederives the tutor's
// archived flag from the remaining active children.
type StudentService struct {
	students  studentStore
	tutors    studentTutorStore
	classes   studentClassStore
	validator *validator.Validate
	logger    *zap.Logger
	curpScope string
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentStore, tutors studentTutorStore, classes studentClassStore, validate *validator.Validate, logger *zap.Logger, curpScope string) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if curpScope != config.CURPScopeCampus {
		curpScope = config.CURPScopeGlobal
	}
	return &StudentService{students: students, tutors: tutors, classes: classes, validator: validate, logger: logger, curpScope: curpScope}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student with their append-only class history.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	previous, err := s.students.PreviousClasses(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class history")
	}
	return &models.StudentDetail{Student: *student, PreviousClasses: previous}, nil
}

// Create enrols a student at the campus, finding or creating the tutor
// by CURP.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest, campusID, actorID string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.students.ExistsByCURP(ctx, req.CURP, "", s.curpCampusScope(campusID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check curp")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this curp is already registered")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.CampusID != campusID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to the selected campus")
	}

	tutor, err := s.findOrCreateTutor(ctx, req.Tutor, campusID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Address:           req.Address,
		CURP:              req.CURP,
		Gender:            req.Gender,
		BirthDate:         req.BirthDate,
		MedicalConditions: req.MedicalConditions,
		SpecialNeeds:      req.SpecialNeeds,
		RequiredDocuments: req.RequiredDocuments,
		Status:            models.StudentStatusActive,
		TutorID:           tutor.ID,
		CampusID:          campusID,
		ClassID:           class.ID,
		CreatedBy:         actorID,
	}

	if err := s.students.Create(ctx, student); err != nil {
		if isConflict(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this curp is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	// A freshly enrolled active child always unarchives the tutor.
	if err := s.tutors.RefreshArchived(ctx, tutor.ID); err != nil {
		s.logger.Error("tutor archive refresh failed", zap.Error(err), zap.String("tutor_id", tutor.ID))
	}
	return student, nil
}

// Update edits a student. Status changes rederive the tutor's archived
// flag afterwards.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest, actorID string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.students.ExistsByCURP(ctx, req.CURP, student.ID, s.curpCampusScope(student.CampusID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check curp")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this curp is already registered")
	}

	if req.ClassID != student.ClassID {
		class, err := s.classes.FindByID(ctx, req.ClassID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		if class.CampusID != student.CampusID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to the student's campus")
		}
	}

	statusChanged := student.Status != req.Status

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Address = req.Address
	student.CURP = req.CURP
	student.Gender = req.Gender
	student.BirthDate = req.BirthDate
	student.MedicalConditions = req.MedicalConditions
	student.SpecialNeeds = req.SpecialNeeds
	student.RequiredDocuments = req.RequiredDocuments
	student.ClassID = req.ClassID
	student.Status = req.Status
	student.UpdatedBy = &actorID

	if err := s.students.Update(ctx, student); err != nil {
		if isConflict(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this curp is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	if statusChanged {
		if err := s.tutors.RefreshArchived(ctx, student.TutorID); err != nil {
			s.logger.Error("tutor archive refresh failed", zap.Error(err), zap.String("tutor_id", student.TutorID))
		}
	}
	return student, nil
}

// curpCampusScope returns the campus bound for uniqueness checks, or
// empty when the registry enforces curp uniqueness globally.
func (s *StudentService) curpCampusScope(campusID string) string {
	if s.curpScope == config.CURPScopeCampus {
		return campusID
	}
	return ""
}

func (s *StudentService) findOrCreateTutor(ctx context.Context, payload models.TutorPayload, campusID string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByCURP(ctx, payload.CURP, campusID)
	if err == nil {
		return tutor, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up tutor")
	}

	tutor = &models.Tutor{
		Name:     payload.Name,
		LastName: payload.LastName,
		CURP:     payload.CURP,
		Phone:    payload.Phone,
		CampusID: campusID,
	}
	if err := s.tutors.Create(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutor")
	}
	return tutor, nil
}
