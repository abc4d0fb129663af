package models

import "time"

// UserRole represents the available roles for back-office accounts.
type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleCoordinator UserRole = "coordinator"
)

// User represents a back-office account stored in the users table.
// Admins are authorized for every campus; coordinators carry an
// explicit grant list in user_campuses.
type User struct {
	ID               string    `db:"id" json:"id"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	Phone            string    `db:"phone" json:"phone,omitempty"`
	Role             UserRole  `db:"role" json:"role"`
	SelectedCampusID *string   `db:"selected_campus_id" json:"selected_campus_id,omitempty"`
	Archived         bool      `db:"archived" json:"archived"`
	CreatedBy        *string   `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy        *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CreateUserRequest registers a back-office account. Coordinators need
// at least one campus grant; admins ignore the grant list.
type CreateUserRequest struct {
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	Phone     string   `json:"phone"`
	Role      UserRole `json:"role" validate:"required,oneof=admin coordinator"`
	CampusIDs []string `json:"campus_ids"`
}

// UpdateUserRequest edits an account. An empty password leaves the
// current hash untouched.
type UpdateUserRequest struct {
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"omitempty,min=8"`
	Phone     string   `json:"phone"`
	Role      UserRole `json:"role" validate:"required,oneof=admin coordinator"`
	Archived  bool     `json:"archived"`
	CampusIDs []string `json:"campus_ids"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Archived  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
