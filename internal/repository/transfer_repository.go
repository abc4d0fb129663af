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

// TransferRepository manages the immutable transfer ledger and applies the
// write effects of a student move atomically.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository constructs a TransferRepository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

const transferColumns = `id, student_id, origin_campus_id, destination_campus_id, origin_class_id, destination_class_id, tutor_id, created_by, transfer_date`

// FindByID fetches a single transfer record.
func (r *TransferRepository) FindByID(ctx context.Context, id string) (*models.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1`, transferColumns)
	var transfer models.Transfer
	if err := r.db.GetContext(ctx, &transfer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	return &transfer, nil
}

// ListByCampus returns transfers where the campus is either side of the move,
// newest first.
func (r *TransferRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE origin_campus_id = $1 OR destination_campus_id = $1 ORDER BY transfer_date DESC`, transferColumns)
	var transfers []models.Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, campusID); err != nil {
		return nil, fmt.Errorf("list transfers by campus: %w", err)
	}
	return transfers, nil
}

// Perform applies every write effect of a transfer inside one transaction:
// the tutor follows the student to the destination campus, the ledger row is
// inserted, the student is reassigned, and the origin class is appended to
// the student's class history. Either all of it lands or none of it does.
func (r *TransferRepository) Perform(ctx context.Context, transfer *models.Transfer) (err error) {
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	if transfer.TransferDate.IsZero() {
		transfer.TransferDate = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE tutors SET campus_id = $2, updated_at = $3 WHERE id = $1`,
		transfer.TutorID, transfer.DestinationCampusID, now)
	if err != nil {
		return fmt.Errorf("move tutor: %w", err)
	}

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO transfers (id, student_id, origin_campus_id, destination_campus_id, origin_class_id, destination_class_id, tutor_id, created_by, transfer_date)
         VALUES (:id, :student_id, :origin_campus_id, :destination_campus_id, :origin_class_id, :destination_class_id, :tutor_id, :created_by, :transfer_date)`,
		transfer)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE students SET campus_id = $2, class_id = $3, updated_at = $4 WHERE id = $1`,
		transfer.StudentID, transfer.DestinationCampusID, transfer.DestinationClassID, now)
	if err != nil {
		return fmt.Errorf("move student: %w", err)
	}

	// Duplicate history rows are possible when a student returns to a class
	// they already left once; the PK makes the append idempotent.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO student_class_history (student_id, class_id, left_at) VALUES ($1, $2, $3) ON CONFLICT (student_id, class_id) DO NOTHING`,
		transfer.StudentID, transfer.OriginClassID, now)
	if err != nil {
		return fmt.Errorf("append class history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}
