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

// SheetRepository manages the sheet-music catalogue. The catalogue is shared
// across campuses; only the files themselves live on disk.
type SheetRepository struct {
	db *sqlx.DB
}

// NewSheetRepository constructs a SheetRepository.
func NewSheetRepository(db *sqlx.DB) *SheetRepository {
	return &SheetRepository{db: db}
}

const sheetColumns = `id, name, author, genre, file_path, archived, created_by, updated_by, created_at, updated_at`

// FindByID fetches a sheet by ID.
func (r *SheetRepository) FindByID(ctx context.Context, id string) (*models.Sheet, error) {
	query := fmt.Sprintf(`SELECT %s FROM sheets WHERE id = $1`, sheetColumns)
	var sheet models.Sheet
	if err := r.db.GetContext(ctx, &sheet, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find sheet: %w", err)
	}
	return &sheet, nil
}

// List returns the catalogue, optionally filtered by a search term matched
// against name and author.
func (r *SheetRepository) List(ctx context.Context, search string) ([]models.Sheet, error) {
	query := fmt.Sprintf(`SELECT %s FROM sheets WHERE archived = false`, sheetColumns)
	args := []interface{}{}
	if search != "" {
		query += ` AND (name ILIKE $1 OR author ILIKE $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`
	var sheets []models.Sheet
	if err := r.db.SelectContext(ctx, &sheets, query, args...); err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return sheets, nil
}

// Create inserts a new sheet record.
func (r *SheetRepository) Create(ctx context.Context, sheet *models.Sheet) error {
	if sheet.ID == "" {
		sheet.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sheet.CreatedAt.IsZero() {
		sheet.CreatedAt = now
	}
	sheet.UpdatedAt = now
	const query = `INSERT INTO sheets (id, name, author, genre, file_path, archived, created_by, updated_by, created_at, updated_at)
        VALUES (:id, :name, :author, :genre, :file_path, :archived, :created_by, :updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	return nil
}

// Update modifies sheet metadata.
func (r *SheetRepository) Update(ctx context.Context, sheet *models.Sheet) error {
	sheet.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sheets SET name = :name, author = :author, genre = :genre, file_path = :file_path, archived = :archived, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}

// Archive soft-deletes a sheet from the catalogue.
func (r *SheetRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE sheets SET archived = true, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive sheet: %w", err)
	}
	return nil
}
