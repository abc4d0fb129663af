package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-mx/campus-api/internal/models"
	appErrors "github.com/harmonia-mx/campus-api/pkg/errors"
	"github.com/harmonia-mx/campus-api/pkg/export"
)

type transferStore interface {
	Perform(ctx context.Context, transfer *models.Transfer) error
	FindByID(ctx context.Context, id string) (*models.Transfer, error)
	ListByCampus(ctx context.Context, campusID string) ([]models.Transfer, error)
}

type transferStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type transferInstrumentStore interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Instrument, error)
}

type transferClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type transferTutorStore interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type transferCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TransferService orchestrates student moves between campuses. All
// preconditions are checked before any write happens; the writes
// themselves run inside one transaction so a failure leaves every
// involved record untouched.
type TransferService struct {
	transfers   transferStore
	students    transferStudentStore
	instruments transferInstrumentStore
	classes     transferClassStore
	tutors      transferTutorStore
	cache       transferCache
	audit       auditRecorder
	metrics     *MetricsService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewTransferService constructs a TransferService.
func NewTransferService(
	transfers transferStore,
	students transferStudentStore,
	instruments transferInstrumentStore,
	classes transferClassStore,
	tutors transferTutorStore,
	cache transferCache,
	audit auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TransferService{
		transfers:   transfers,
		students:    students,
		instruments: instruments,
		classes:     classes,
		tutors:      tutors,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

func transferCacheKey(campusID string) string {
	return fmt.Sprintf("transfers:campus:%s", campusID)
}

// Create validates every precondition in order, then applies the move.
// Nothing is written until all checks pass.
func (s *TransferService) Create(ctx context.Context, req models.CreateTransferRequest, actorID string) (*models.Transfer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if _, err := s.instruments.FindByStudentID(ctx, student.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has an instrument assigned; release it before transferring")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instrument assignment")
	}

	if req.OriginCampusID == req.DestinationCampusID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "origin and destination campus must differ")
	}

	if student.CampusID != req.OriginCampusID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is not enrolled at the origin campus")
	}

	originClass, err := s.classes.FindByID(ctx, req.OriginClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "origin class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load origin class")
	}

	destClass, err := s.classes.FindByID(ctx, req.DestinationClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "destination class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load destination class")
	}

	if originClass.CampusID != req.OriginCampusID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "origin class does not belong to the origin campus")
	}

	if destClass.CampusID != req.DestinationCampusID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "destination class does not belong to the destination campus")
	}

	tutor, err := s.tutors.FindByID(ctx, student.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	transfer := &models.Transfer{
		StudentID:           student.ID,
		OriginCampusID:      req.OriginCampusID,
		DestinationCampusID: req.DestinationCampusID,
		OriginClassID:       originClass.ID,
		DestinationClassID:  destClass.ID,
		TutorID:             tutor.ID,
		CreatedBy:           actorID,
	}

	if err := s.transfers.Perform(ctx, transfer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transfer")
	}

	s.invalidateCampusCaches(ctx, transfer.OriginCampusID, transfer.DestinationCampusID)

	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionTransfer,
		Resource:   "transfer",
		ResourceID: &transfer.ID,
		NewValues:  []byte(fmt.Sprintf(`{"student_id":%q,"origin":%q,"destination":%q}`, transfer.StudentID, transfer.OriginCampusID, transfer.DestinationCampusID)),
	})

	return transfer, nil
}

// Get returns a single transfer record.
func (s *TransferService) Get(ctx context.Context, id string) (*models.Transfer, error) {
	transfer, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transfer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer")
	}
	return transfer, nil
}

// ListByCampus returns transfers touching the campus, serving from cache
// when a fresh entry exists.
func (s *TransferService) ListByCampus(ctx context.Context, campusID string) ([]models.Transfer, error) {
	key := transferCacheKey(campusID)
	if s.cache != nil {
		var cached []models.Transfer
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("transfer cache read failed", zap.Error(err), zap.String("campus_id", campusID))
		}
		s.metrics.RecordCacheOperation(false)
	}

	transfers, err := s.transfers.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, transfers, s.cacheTTL); err != nil {
			s.logger.Warn("transfer cache write failed", zap.Error(err), zap.String("campus_id", campusID))
		}
	}
	return transfers, nil
}

// Export renders the campus transfer history as CSV or PDF. It returns
// the payload and its content type.
func (s *TransferService) Export(ctx context.Context, campusID, format string) ([]byte, string, error) {
	transfers, err := s.ListByCampus(ctx, campusID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Transfer ID", "Student", "Origin campus", "Destination campus", "Origin class", "Destination class", "Date"},
	}
	for _, t := range transfers {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Transfer ID":        t.ID,
			"Student":            t.StudentID,
			"Origin campus":      t.OriginCampusID,
			"Destination campus": t.DestinationCampusID,
			"Origin class":       t.OriginClassID,
			"Destination class":  t.DestinationClassID,
			"Date":               t.TransferDate.Format(time.RFC3339),
		})
	}

	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Transfer history %s", campusID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *TransferService) invalidateCampusCaches(ctx context.Context, campusIDs ...string) {
	if s.cache == nil {
		return
	}
	for _, id := range campusIDs {
		if err := s.cache.DeleteByPattern(ctx, transferCacheKey(id)); err != nil {
			s.logger.Warn("transfer cache invalidation failed", zap.Error(err), zap.String("campus_id", id))
		}
	}
}
