package models

import "time"

// Subject represents an academic subject offered for advisories.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SubjectDetail is a professor-to-subject assignment. Students request
// advisories against a subject detail, never against a bare subject.
type SubjectDetail struct {
	ID          string    `db:"id" json:"id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	ProfessorID string    `db:"professor_id" json:"professor_id"`
	Term        string    `db:"term" json:"term"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SubjectDetailInfo extends an assignment with display metadata.
type SubjectDetailInfo struct {
	SubjectDetail
	SubjectCode   string `db:"subject_code" json:"subject_code"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	ProfessorName string `db:"professor_name" json:"professor_name"`
}
