package models

import "time"

// Tutor is the legal guardian of one or more students. The archived
// flag is derived: true iff none of the tutor's children are active.
type Tutor struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CURP      string    `db:"curp" json:"curp"`
	Phone     string    `db:"phone" json:"phone"`
	CampusID  string    `db:"campus_id" json:"campus_id"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TutorDetail adds the child roster resolved from students.tutor_id.
type TutorDetail struct {
	Tutor
	Children []Student `json:"children"`
}
