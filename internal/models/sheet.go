package models

import "time"

// Sheet is a catalogued piece of sheet music. The file itself lives on
// local storage and is served through short-lived signed URLs.
type Sheet struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Author    string    `db:"author" json:"author"`
	Genre     string    `db:"genre" json:"genre"`
	FilePath  string    `db:"file_path" json:"-"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
