package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-mx/campus-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, first_name, last_name, address, curp, gender, birth_date, medical_conditions, special_needs, required_documents, status, has_instrument, tutor_id, campus_id, class_id, created_by, updated_by, created_at, updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.CampusID != "" {
		args = append(args, filter.CampusID)
		conditions = append(conditions, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(curp) LIKE $%d)", len(args), len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"first_name": "first_name",
		"last_name":  "last_name",
		"curp":       "curp",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, where, column, order, size, (page-1)*size)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// PreviousClasses returns the append-only class history, oldest first.
func (r *StudentRepository) PreviousClasses(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT class_id FROM student_class_history WHERE student_id = $1 ORDER BY left_at`
	classIDs := []string{}
	if err := r.db.SelectContext(ctx, &classIDs, query, studentID); err != nil {
		return nil, fmt.Errorf("list previous classes: %w", err)
	}
	return classIDs, nil
}

// ExistsByCURP checks whether a student with the given CURP exists,
// optionally excluding an ID and scoping to a campus.
func (r *StudentRepository) ExistsByCURP(ctx context.Context, curp, excludeID, campusID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE curp = $1"
	args := []interface{}{curp}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	if campusID != "" {
		args = append(args, campusID)
		query += fmt.Sprintf(" AND campus_id = $%d", len(args))
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check curp: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, address, curp, gender, birth_date, medical_conditions, special_needs, required_documents, status, has_instrument, tutor_id, campus_id, class_id, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :address, :curp, :gender, :birth_date, :medical_conditions, :special_needs, :required_documents, :status, :has_instrument, :tutor_id, :campus_id, :class_id, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, address = :address, curp = :curp, gender = :gender, birth_date = :birth_date, medical_conditions = :medical_conditions, special_needs = :special_needs, required_documents = :required_documents, status = :status, tutor_id = :tutor_id, class_id = :class_id, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// RecomputeHasInstrument derives the has_instrument flag from the
// instruments table in a single statement. Idempotent; safe to run for
// any student at any time.
func (r *StudentRepository) RecomputeHasInstrument(ctx context.Context, studentID string) error {
	const query = `UPDATE students SET has_instrument = EXISTS (
            SELECT 1 FROM instruments WHERE student_id = $1
        ), updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recompute has_instrument: %w", err)
	}
	return nil
}
