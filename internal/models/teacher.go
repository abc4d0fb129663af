package models

import "time"

// Teacher is a staff member who teaches classes at one campus.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CampusID  string    `db:"campus_id" json:"campus_id"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherRequest creates or edits a teaching staff member.
type TeacherRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     string  `json:"phone" validate:"required"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
}
