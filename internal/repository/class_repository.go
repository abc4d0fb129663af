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

// ClassRepository manages persistence for class records.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, name, generation, campus_id, teacher_id, days, start_time, end_time, archived, created_by, updated_by, created_at, updated_at`

// FindByID fetches a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ListByCampus returns the classes held at the campus.
func (r *ClassRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE campus_id = $1 ORDER BY name`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, campusID); err != nil {
		return nil, fmt.Errorf("list classes by campus: %w", err)
	}
	return classes, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, generation, campus_id, teacher_id, days, start_time, end_time, archived, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :name, :generation, :campus_id, :teacher_id, :days, :start_time, :end_time, :archived, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, generation = :generation, teacher_id = :teacher_id, days = :days, start_time = :start_time, end_time = :end_time, archived = :archived, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Archive soft-deletes a class.
func (r *ClassRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE classes SET archived = true, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive class: %w", err)
	}
	return nil
}
