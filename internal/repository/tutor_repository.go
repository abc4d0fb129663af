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

// TutorRepository manages persistence for tutor records.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

const tutorColumns = `id, name, last_name, curp, phone, campus_id, archived, created_at, updated_at`

// FindByID fetches a tutor by ID.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE id = $1`, tutorColumns)
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor: %w", err)
	}
	return &tutor, nil
}

// FindByCURP looks a tutor up by national ID. When campusID is
// non-empty the lookup is scoped to that campus.
func (r *TutorRepository) FindByCURP(ctx context.Context, curp, campusID string) (*models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE curp = $1`, tutorColumns)
	args := []interface{}{curp}
	if campusID != "" {
		query += ` AND campus_id = $2`
		args = append(args, campusID)
	}
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query+` LIMIT 1`, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor by curp: %w", err)
	}
	return &tutor, nil
}

// ListByCampus returns tutors registered at the campus.
func (r *TutorRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Tutor, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutors WHERE campus_id = $1 ORDER BY last_name, name`, tutorColumns)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, campusID); err != nil {
		return nil, fmt.Errorf("list tutors by campus: %w", err)
	}
	return tutors, nil
}

// Children returns the students referencing the tutor.
func (r *TutorRepository) Children(ctx context.Context, tutorID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE tutor_id = $1 ORDER BY created_at`, studentColumns)
	var children []models.Student
	if err := r.db.SelectContext(ctx, &children, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor children: %w", err)
	}
	return children, nil
}

// Create inserts a new tutor.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now
	const query = `INSERT INTO tutors (id, name, last_name, curp, phone, campus_id, archived, created_at, updated_at)
        VALUES (:id, :name, :last_name, :curp, :phone, :campus_id, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// Update modifies an existing tutor.
func (r *TutorRepository) Update(ctx context.Context, tutor *models.Tutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutors SET name = :name, last_name = :last_name, curp = :curp, phone = :phone, campus_id = :campus_id, archived = :archived, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}
	return nil
}

// RefreshArchived recomputes the derived archived flag: a tutor is
// archived iff none of their children remain active.
func (r *TutorRepository) RefreshArchived(ctx context.Context, tutorID string) error {
	const query = `UPDATE tutors SET archived = NOT EXISTS (
            SELECT 1 FROM students WHERE tutor_id = $1 AND status = $2
        ), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, tutorID, models.StudentStatusActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh tutor archived flag: %w", err)
	}
	return nil
}
