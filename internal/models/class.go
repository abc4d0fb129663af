package models

import (
	"time"

	"github.com/lib/pq"
)

// ValidClassDays lists the accepted schedule day names.
var ValidClassDays = []string{"Lunes", "Martes", "Miercoles", "Jueves", "Viernes", "Sabado", "Domingo"}

// Class is a recurring lesson group at one campus. A teacher, when
// assigned, must belong to the same campus as the class.
type Class struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Generation string         `db:"generation" json:"generation"`
	CampusID   string         `db:"campus_id" json:"campus_id"`
	TeacherID  *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	Days       pq.StringArray `db:"days" json:"days"`
	StartTime  string         `db:"start_time" json:"start_time"`
	EndTime    string         `db:"end_time" json:"end_time"`
	Archived   bool           `db:"archived" json:"archived"`
	CreatedBy  string         `db:"created_by" json:"created_by"`
	UpdatedBy  *string        `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassRequest creates or edits a lesson group. Times use 24h HH:MM.
type ClassRequest struct {
	Name       string   `json:"name" validate:"required"`
	Generation string   `json:"generation" validate:"required"`
	TeacherID  *string  `json:"teacher_id,omitempty"`
	Days       []string `json:"days" validate:"required,min=1"`
	StartTime  string   `json:"start_time" validate:"required"`
	EndTime    string   `json:"end_time" validate:"required"`
}
