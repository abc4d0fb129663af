package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-mx/campus-api/internal/models"
)

// InstrumentRepository manages persistence for instrument inventory.
type InstrumentRepository struct {
	db *sqlx.DB
}

// NewInstrumentRepository constructs an InstrumentRepository.
func NewInstrumentRepository(db *sqlx.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

const instrumentColumns = `id, internal_id, name, student_id, tutor_id, campus_id, assignment_date, created_by, updated_by, created_at, updated_at`

// FindByID fetches an instrument by ID.
func (r *InstrumentRepository) FindByID(ctx context.Context, id string) (*models.Instrument, error) {
	query := fmt.Sprintf(`SELECT %s FROM instruments WHERE id = $1`, instrumentColumns)
	var inst models.Instrument
	if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find instrument: %w", err)
	}
	return &inst, nil
}

// FindByStudentID returns the instrument currently assigned to the student,
// or sql.ErrNoRows when the student holds none.
func (r *InstrumentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Instrument, error) {
	query := fmt.Sprintf(`SELECT %s FROM instruments WHERE student_id = $1`, instrumentColumns)
	var inst models.Instrument
	if err := r.db.GetContext(ctx, &inst, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find instrument by student: %w", err)
	}
	return &inst, nil
}

// ExistsByInternalID reports whether another instrument already uses the
// inventory tag. excludeID skips the instrument being updated.
func (r *InstrumentRepository) ExistsByInternalID(ctx context.Context, internalID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM instruments WHERE internal_id = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, internalID, excludeID); err != nil {
		return false, fmt.Errorf("check instrument internal id: %w", err)
	}
	return exists, nil
}

// ListByCampus returns the instruments registered at the campus.
func (r *InstrumentRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Instrument, error) {
	query := fmt.Sprintf(`SELECT %s FROM instruments WHERE campus_id = $1 ORDER BY internal_id`, instrumentColumns)
	var instruments []models.Instrument
	if err := r.db.SelectContext(ctx, &instruments, query, campusID); err != nil {
		return nil, fmt.Errorf("list instruments by campus: %w", err)
	}
	return instruments, nil
}

// Create inserts a new instrument.
func (r *InstrumentRepository) Create(ctx context.Context, inst *models.Instrument) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
	const query = `INSERT INTO instruments (id, internal_id, name, student_id, tutor_id, campus_id, assignment_date, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :internal_id, :name, :student_id, :tutor_id, :campus_id, :assignment_date, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inst); err != nil {
		return fmt.Errorf("create instrument: %w", err)
	}
	return nil
}

// Update modifies an existing instrument, including its assignment.
func (r *InstrumentRepository) Update(ctx context.Context, inst *models.Instrument) error {
	inst.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instruments SET internal_id = :internal_id, name = :name, student_id = :student_id, tutor_id = :tutor_id, campus_id = :campus_id, assignment_date = :assignment_date, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, inst); err != nil {
		return fmt.Errorf("update instrument: %w", err)
	}
	return nil
}

// Delete removes an instrument from the inventory.
func (r *InstrumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM instruments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete instrument: %w", err)
	}
	return nil
}
