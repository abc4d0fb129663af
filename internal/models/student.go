package models

import "time"

// Student status values kept in the registry's original language.
const (
	StudentStatusActive   = "activo"
	StudentStatusInactive = "inactivo"
)

// Student is a learner enrolled at one campus and one class. The
// has_instrument flag is a derived projection of the instruments table
// and is only ever written by the recomputation routine.
type Student struct {
	ID                 string     `db:"id" json:"id"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	Address            string     `db:"address" json:"address"`
	CURP               string     `db:"curp" json:"curp"`
	Gender             string     `db:"gender" json:"gender"`
	BirthDate          *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	MedicalConditions  *string    `db:"medical_conditions" json:"medical_conditions,omitempty"`
	SpecialNeeds       *string    `db:"special_needs" json:"special_needs,omitempty"`
	RequiredDocuments  *string    `db:"required_documents" json:"required_documents,omitempty"`
	Status             string     `db:"status" json:"status"`
	HasInstrument      bool       `db:"has_instrument" json:"has_instrument"`
	TutorID            string     `db:"tutor_id" json:"tutor_id"`
	CampusID           string     `db:"campus_id" json:"campus_id"`
	ClassID            string     `db:"class_id" json:"class_id"`
	CreatedBy          string     `db:"created_by" json:"created_by"`
	UpdatedBy          *string    `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the student counts toward tutor activity.
func (s *Student) Active() bool {
	return s.Status == StudentStatusActive
}

// StudentDetail carries the append-only previous-class history.
type StudentDetail struct {
	Student
	PreviousClasses []string `json:"previous_classes"`
}

// TutorPayload carries the guardian data submitted with an enrolment.
// The tutor is found by CURP or created on the fly.
type TutorPayload struct {
	Name     string `json:"name" validate:"required"`
	LastName string `json:"last_name" validate:"required"`
	CURP     string `json:"curp" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

// CreateStudentRequest enrols a student at the selected campus.
type CreateStudentRequest struct {
	FirstName         string       `json:"first_name" validate:"required"`
	LastName          string       `json:"last_name" validate:"required"`
	Address           string       `json:"address" validate:"required"`
	CURP              string       `json:"curp" validate:"required"`
	Gender            string       `json:"gender" validate:"required"`
	BirthDate         *time.Time   `json:"birth_date,omitempty"`
	MedicalConditions *string      `json:"medical_conditions,omitempty"`
	SpecialNeeds      *string      `json:"special_needs,omitempty"`
	RequiredDocuments *string      `json:"required_documents,omitempty"`
	ClassID           string       `json:"class_id" validate:"required"`
	Tutor             TutorPayload `json:"tutor" validate:"required"`
}

// UpdateStudentRequest edits an enrolled student.
type UpdateStudentRequest struct {
	FirstName         string     `json:"first_name" validate:"required"`
	LastName          string     `json:"last_name" validate:"required"`
	Address           string     `json:"address" validate:"required"`
	CURP              string     `json:"curp" validate:"required"`
	Gender            string     `json:"gender" validate:"required"`
	BirthDate         *time.Time `json:"birth_date,omitempty"`
	MedicalConditions *string    `json:"medical_conditions,omitempty"`
	SpecialNeeds      *string    `json:"special_needs,omitempty"`
	RequiredDocuments *string    `json:"required_documents,omitempty"`
	ClassID           string     `json:"class_id" validate:"required"`
	Status            string     `json:"status" validate:"required,oneof=activo inactivo"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	CampusID  string
	ClassID   string
	Status    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
