package models

import "time"

// Instrument is an inventory item identified by its internal tag. At
// most one instrument references a given student at any time; the
// tutor reference mirrors the assigned student's tutor and is never
// authored independently.
type Instrument struct {
	ID             string     `db:"id" json:"id"`
	InternalID     string     `db:"internal_id" json:"internal_id"`
	Name           string     `db:"name" json:"name"`
	StudentID      *string    `db:"student_id" json:"student_id,omitempty"`
	TutorID        *string    `db:"tutor_id" json:"tutor_id,omitempty"`
	CampusID       string     `db:"campus_id" json:"campus_id"`
	AssignmentDate *time.Time `db:"assignment_date" json:"assignment_date,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	UpdatedBy      *string    `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateInstrumentRequest registers an inventory item, optionally
// assigning it to a student.
type CreateInstrumentRequest struct {
	InternalID string  `json:"internal_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	StudentID  *string `json:"student_id,omitempty"`
}

// UpdateInstrumentRequest edits an inventory item. A nil StudentID
// clears the assignment.
type UpdateInstrumentRequest struct {
	InternalID string  `json:"internal_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	StudentID  *string `json:"student_id,omitempty"`
}
