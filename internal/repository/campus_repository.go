package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/harmonia-mx/campus-api/internal/models"
)

// CampusRepository manages persistence for campus records.
type CampusRepository struct {
	db *sqlx.DB
}

// NewCampusRepository constructs a CampusRepository.
func NewCampusRepository(db *sqlx.DB) *CampusRepository {
	return &CampusRepository{db: db}
}

const campusColumns = `id, name, address, contact_phone, coordinator_id, archived, created_at, updated_at`

// List returns campuses, optionally including archived sites.
func (r *CampusRepository) List(ctx context.Context, includeArchived bool) ([]models.Campus, error) {
	query := fmt.Sprintf(`SELECT %s FROM campuses`, campusColumns)
	if !includeArchived {
		query += ` WHERE archived = false`
	}
	query += ` ORDER BY name`
	var campuses []models.Campus
	if err := r.db.SelectContext(ctx, &campuses, query); err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	return campuses, nil
}

// FindByID fetches a campus by ID.
func (r *CampusRepository) FindByID(ctx context.Context, id string) (*models.Campus, error) {
	query := fmt.Sprintf(`SELECT %s FROM campuses WHERE id = $1`, campusColumns)
	var campus models.Campus
	if err := r.db.GetContext(ctx, &campus, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find campus: %w", err)
	}
	return &campus, nil
}

// FindByIDs fetches the campuses matching the given set of IDs.
func (r *CampusRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Campus, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM campuses WHERE id = ANY($1) ORDER BY name`, campusColumns)
	var campuses []models.Campus
	if err := r.db.SelectContext(ctx, &campuses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find campuses by ids: %w", err)
	}
	return campuses, nil
}

// Create inserts a new campus.
func (r *CampusRepository) Create(ctx context.Context, campus *models.Campus) error {
	if campus.ID == "" {
		campus.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if campus.CreatedAt.IsZero() {
		campus.CreatedAt = now
	}
	campus.UpdatedAt = now
	const query = `INSERT INTO campuses (id, name, address, contact_phone, coordinator_id, archived, created_at, updated_at)
        VALUES (:id, :name, :address, :contact_phone, :coordinator_id, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campus); err != nil {
		return fmt.Errorf("create campus: %w", err)
	}
	return nil
}

// Update modifies an existing campus.
func (r *CampusRepository) Update(ctx context.Context, campus *models.Campus) error {
	campus.UpdatedAt = time.Now().UTC()
	const query = `UPDATE campuses SET name = :name, address = :address, contact_phone = :contact_phone, coordinator_id = :coordinator_id, archived = :archived, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, campus); err != nil {
		return fmt.Errorf("update campus: %w", err)
	}
	return nil
}

// Archive soft-deletes a campus.
func (r *CampusRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE campuses SET archived = true, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive campus: %w", err)
	}
	return nil
}
