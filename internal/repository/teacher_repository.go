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

// TeacherRepository manages persistence for teaching staff.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = `id, first_name, last_name, phone, email, campus_id, archived, created_by, updated_by, created_at, updated_at`

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE id = $1`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// ListByCampus returns the active teachers at the campus.
func (r *TeacherRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE campus_id = $1 AND archived = false ORDER BY last_name, first_name`, teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, campusID); err != nil {
		return nil, fmt.Errorf("list teachers by campus: %w", err)
	}
	return teachers, nil
}

// Create inserts a new teacher.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, first_name, last_name, phone, email, campus_id, archived, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :phone, :email, :campus_id, :archived, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET first_name = :first_name, last_name = :last_name, phone = :phone, email = :email, campus_id = :campus_id, archived = :archived, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Archive soft-deletes a teacher.
func (r *TeacherRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE teachers SET archived = true, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive teacher: %w", err)
	}
	return nil
}
