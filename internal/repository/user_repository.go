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

// UserRepository provides database access for back-office accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, phone, role, selected_campus_id, archived, created_by, updated_by, created_at, updated_at`

// FindByEmail returns a user by email address (case-insensitive).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = LOWER($1) LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// List returns users matching the filter.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		conditions = append(conditions, fmt.Sprintf("archived = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR email LIKE $%d)", len(args), len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, userColumns, where, size, (page-1)*size)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, first_name, last_name, email, password_hash, phone, role, selected_campus_id, archived, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :password_hash, :phone, :role, :selected_campus_id, :archived, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update modifies an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	const query = `UPDATE users SET first_name = :first_name, last_name = :last_name, email = :email, password_hash = :password_hash, phone = :phone, role = :role, archived = :archived, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateSelectedCampus mirrors the session's campus selection onto the
// user row. A nil campusID clears the selection.
func (r *UserRepository) UpdateSelectedCampus(ctx context.Context, id string, campusID *string) error {
	const query = `UPDATE users SET selected_campus_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, campusID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update selected campus: %w", err)
	}
	return nil
}

// CampusGrants returns the campus IDs explicitly granted to the user.
func (r *UserRepository) CampusGrants(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT campus_id FROM user_campuses WHERE user_id = $1 ORDER BY campus_id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list campus grants: %w", err)
	}
	return ids, nil
}

// ReplaceCampusGrants swaps the user's explicit campus grant list.
func (r *UserRepository) ReplaceCampusGrants(ctx context.Context, userID string, campusIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace campus grants: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_campuses WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear campus grants: %w", err)
	}
	for _, campusID := range campusIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO user_campuses (user_id, campus_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, campusID); err != nil {
			return fmt.Errorf("insert campus grant: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace campus grants: %w", err)
	}
	return nil
}

// CreateAuditLog persists an audit trail record.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
