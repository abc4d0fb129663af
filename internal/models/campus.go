package models

import "time"

// Campus is a physical site of the school network and the primary
// tenancy boundary for every scoped record.
type Campus struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Address       string    `db:"address" json:"address"`
	ContactPhone  string    `db:"contact_phone" json:"contact_phone,omitempty"`
	CoordinatorID string    `db:"coordinator_id" json:"coordinator_id"`
	Archived      bool      `db:"archived" json:"archived"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CampusRequest creates or edits a campus. Admin only.
type CampusRequest struct {
	Name          string `json:"name" validate:"required"`
	Address       string `json:"address" validate:"required"`
	ContactPhone  string `json:"contact_phone"`
	CoordinatorID string `json:"coordinator_id" validate:"required"`
}
