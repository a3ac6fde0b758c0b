package models

import "time"

// Advisory is a bookable recurring tutoring engagement between a professor
// and students for a subject detail. It materializes into dated sessions.
type Advisory struct {
	ID              string    `db:"id" json:"id"`
	ProfessorID     string    `db:"professor_id" json:"professor_id"`
	SubjectDetailID string    `db:"subject_detail_id" json:"subject_detail_id"`
	MaxStudents     int       `db:"max_students" json:"max_students"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// AdvisorySchedule is a recurring weekly entry of an advisory.
type AdvisorySchedule struct {
	ID         string    `db:"id" json:"id"`
	AdvisoryID string    `db:"advisory_id" json:"advisory_id"`
	DayOfWeek  DayOfWeek `db:"day_of_week" json:"day_of_week"`
	BeginTime  string    `db:"begin_time" json:"begin_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
}

// AdvisoryDate is a concrete dated occurrence of an advisory at a venue.
// TimeSlotID links the session back to the availability slot it consumed;
// nil for sessions scheduled outside published availability.
type AdvisoryDate struct {
	ID         string    `db:"id" json:"id"`
	AdvisoryID string    `db:"advisory_id" json:"advisory_id"`
	TimeSlotID *string   `db:"time_slot_id" json:"time_slot_id,omitempty"`
	Topic      string    `db:"topic" json:"topic"`
	Date       time.Time `db:"date" json:"date"`
	VenueID    string    `db:"venue_id" json:"venue_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AdvisoryParticipant registers a student on a dated session. Participant
// counts back a slot's remaining capacity on that date.
type AdvisoryParticipant struct {
	ID             string    `db:"id" json:"id"`
	AdvisoryDateID string    `db:"advisory_date_id" json:"advisory_date_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AdvisoryDetail aggregates an advisory with its schedules and dates.
type AdvisoryDetail struct {
	Advisory
	Schedules []AdvisorySchedule `json:"schedules"`
	Dates     []AdvisoryDate     `json:"dates"`
}

// AdvisoryFilter scopes advisory listing queries.
type AdvisoryFilter struct {
	ProfessorID     string
	SubjectDetailID string
	Page            int
	PageSize        int
}
