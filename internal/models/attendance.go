package models

import "time"

// AdvisoryAttendance records whether a student attended a dated session.
// One record per (student, advisory date) pair.
type AdvisoryAttendance struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	AdvisoryDateID string    `db:"advisory_date_id" json:"advisory_date_id"`
	Attended       bool      `db:"attended" json:"attended"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends an attendance row with student metadata for
// listings and report exports.
type AttendanceRecord struct {
	AdvisoryAttendance
	StudentName  string     `db:"student_name" json:"student_name"`
	StudentEmail string     `db:"student_email" json:"student_email"`
	SessionDate  *time.Time `db:"session_date" json:"session_date,omitempty"`
}
