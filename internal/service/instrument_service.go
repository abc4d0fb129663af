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

type instrumentStore interface {
	FindByID(ctx context.Context, id string) (*models.Instrument, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Instrument, error)
	ExistsByInternalID(ctx context.Context, internalID, excludeID string) (bool, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Instrument, error)
	Create(ctx context.Context, inst *models.Instrument) error
	Update(ctx context.Context, inst *models.Instrument) error
	Delete(ctx context.Context, id string) error
}

type instrumentStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	RecomputeHasInstrument(ctx context.Context, studentID string) error
}

// InstrumentService manages the instrument inventory and its single
// invariant: a student holds at most one instrument, and the student's
// has_instrument flag is always derived from the inventory, never set
// by hand.
type InstrumentService struct {
	instruments instrumentStore
	students    instrumentStudentStore
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewInstrumentService constructs an InstrumentService.
func NewInstrumentService(instruments instrumentStore, students instrumentStudentStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *InstrumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InstrumentService{instruments: instruments, students: students, audit: audit, validator: validate, logger: logger}
}

// Get returns a single instrument.
func (s *InstrumentService) Get(ctx context.Context, id string) (*models.Instrument, error) {
	inst, err := s.instruments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instrument not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instrument")
	}
	return inst, nil
}

// ListByCampus returns the campus inventory.
func (s *InstrumentService) ListByCampus(ctx context.Context, campusID string) ([]models.Instrument, error) {
	instruments, err := s.instruments.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instruments")
	}
	return instruments, nil
}

// Create registers an instrument at the campus, optionally assigning it.
func (s *InstrumentService) Create(ctx context.Context, req models.CreateInstrumentRequest, campusID, actorID string) (*models.Instrument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instrument payload")
	}

	taken, err := s.instruments.ExistsByInternalID(ctx, req.InternalID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check internal id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("internal id %q is already in use", req.InternalID))
	}

	inst := &models.Instrument{
		InternalID: req.InternalID,
		Name:       req.Name,
		CampusID:   campusID,
		CreatedBy:  actorID,
	}

	if req.StudentID != nil {
		student, err := s.assignableStudent(ctx, *req.StudentID, "")
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		inst.StudentID = &student.ID
		inst.TutorID = &student.TutorID
		inst.AssignmentDate = &now
	}

	if err := s.instruments.Create(ctx, inst); err != nil {
		if isConflict(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("internal id %q is already in use", req.InternalID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instrument")
	}

	if inst.StudentID != nil {
		s.recompute(ctx, *inst.StudentID)
		s.recordAssignment(ctx, actorID, inst, "assigned")
	}
	return inst, nil
}

// Update edits an instrument. Assignment changes recompute the derived
// flag for the previous and new holder independently.
func (s *InstrumentService) Update(ctx context.Context, id string, req models.UpdateInstrumentRequest, actorID string) (*models.Instrument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instrument payload")
	}

	inst, err := s.instruments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instrument not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instrument")
	}

	taken, err := s.instruments.ExistsByInternalID(ctx, req.InternalID, inst.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check internal id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("internal id %q is already in use", req.InternalID))
	}

	var previousStudentID string
	if inst.StudentID != nil {
		previousStudentID = *inst.StudentID
	}

	inst.InternalID = req.InternalID
	inst.Name = req.Name
	inst.UpdatedBy = &actorID

	switch {
	case req.StudentID == nil:
		inst.StudentID = nil
		inst.TutorID = nil
		inst.AssignmentDate = nil
	case previousStudentID != *req.StudentID:
		student, err := s.assignableStudent(ctx, *req.StudentID, inst.ID)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		inst.StudentID = &student.ID
		inst.TutorID = &student.TutorID
		inst.AssignmentDate = &now
	}

	if err := s.instruments.Update(ctx, inst); err != nil {
		if isConflict(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("internal id %q is already in use", req.InternalID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instrument")
	}

	newStudentID := ""
	if inst.StudentID != nil {
		newStudentID = *inst.StudentID
	}
	if previousStudentID != "" && previousStudentID != newStudentID {
		s.recompute(ctx, previousStudentID)
	}
	if newStudentID != "" && newStudentID != previousStudentID {
		s.recompute(ctx, newStudentID)
	}
	if newStudentID != previousStudentID {
		s.recordAssignment(ctx, actorID, inst, "reassigned")
	}
	return inst, nil
}

// Delete removes an instrument and recomputes the flag for the student
// who held it.
func (s *InstrumentService) Delete(ctx context.Context, id, actorID string) error {
	inst, err := s.instruments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instrument not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instrument")
	}

	if err := s.instruments.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instrument")
	}

	if inst.StudentID != nil {
		s.recompute(ctx, *inst.StudentID)
		s.recordAssignment(ctx, actorID, inst, "released")
	}
	return nil
}

// RecomputeHasInstrument rederives the flag for one student.
func (s *InstrumentService) RecomputeHasInstrument(ctx context.Context, studentID string) error {
	if err := s.students.RecomputeHasInstrument(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute has_instrument")
	}
	return nil
}

// assignableStudent loads a student and verifies they hold no other
// instrument. excludeInstrumentID tolerates the instrument being edited.
func (s *InstrumentService) assignableStudent(ctx context.Context, studentID, excludeInstrumentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	current, err := s.instruments.FindByStudentID(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check current assignment")
	}
	if current.ID != excludeInstrumentID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an instrument assigned")
	}
	return student, nil
}

func (s *InstrumentService) recompute(ctx context.Context, studentID string) {
	if err := s.students.RecomputeHasInstrument(ctx, studentID); err != nil {
		s.logger.Error("has_instrument recompute failed", zap.Error(err), zap.String("student_id", studentID))
	}
}

func (s *InstrumentService) recordAssignment(ctx context.Context, actorID string, inst *models.Instrument, change string) {
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionAssignment,
		Resource:   "instrument",
		ResourceID: &inst.ID,
		NewValues:  []byte(fmt.Sprintf(`{"change":%q,"internal_id":%q}`, change, inst.InternalID)),
	})
}
