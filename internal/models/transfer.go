package models

import "time"

// Transfer is the immutable audit record of one student move between
// campuses. Rows are created once and never updated or deleted.
type Transfer struct {
	ID                  string    `db:"id" json:"id"`
	StudentID           string    `db:"student_id" json:"student_id"`
	OriginCampusID      string    `db:"origin_campus_id" json:"origin_campus_id"`
	DestinationCampusID string    `db:"destination_campus_id" json:"destination_campus_id"`
	OriginClassID       string    `db:"origin_class_id" json:"origin_class_id"`
	DestinationClassID  string    `db:"destination_class_id" json:"destination_class_id"`
	TutorID             string    `db:"tutor_id" json:"tutor_id"`
	CreatedBy           string    `db:"created_by" json:"created_by"`
	TransferDate        time.Time `db:"transfer_date" json:"transfer_date"`
}

// CreateTransferRequest is the payload for moving a student to another
// campus. The caller declares both classes; each must belong to its
// side of the move.
type CreateTransferRequest struct {
	StudentID           string `json:"student_id" validate:"required"`
	OriginCampusID      string `json:"origin_campus_id" validate:"required"`
	DestinationCampusID string `json:"destination_campus_id" validate:"required"`
	OriginClassID       string `json:"origin_class_id" validate:"required"`
	DestinationClassID  string `json:"destination_class_id" validate:"required"`
}
