package models

import (
	"fmt"
	"time"
)

// DayOfWeek enumerates weekdays for recurring availability.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Valid returns true when the day is a supported value.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	default:
		return false
	}
}

// DayOfWeekFromTime maps a calendar date to its DayOfWeek.
func DayOfWeekFromTime(t time.Time) DayOfWeek {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ClockMinutes parses a "HH:MM" local time-of-day into minutes since midnight.
func ClockMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// TimeSlot is a recurring or date-bounded window of professor availability
// with a per-slot student capacity. Times are local "HH:MM" without zone.
type TimeSlot struct {
	ID                  string     `db:"id" json:"id"`
	ProfessorID         string     `db:"professor_id" json:"professor_id"`
	SubjectDetailID     *string    `db:"subject_detail_id" json:"subject_detail_id,omitempty"`
	DayOfWeek           DayOfWeek  `db:"day_of_week" json:"day_of_week"`
	StartTime           string     `db:"start_time" json:"start_time"`
	EndTime             string     `db:"end_time" json:"end_time"`
	MaxStudentsPerSlot  int        `db:"max_students_per_slot" json:"max_students_per_slot"`
	SlotDurationMinutes int        `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	IsRecurring         bool       `db:"is_recurring" json:"is_recurring"`
	EffectiveFrom       *time.Time `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveUntil      *time.Time `db:"effective_until" json:"effective_until,omitempty"`
	Notes               string     `db:"notes" json:"notes"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// CoversDate reports whether the slot's effective bounds bracket the date.
// A nil bound is unbounded on that side.
func (s *TimeSlot) CoversDate(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	if s.EffectiveFrom != nil && day.Before(s.EffectiveFrom.Truncate(24*time.Hour)) {
		return false
	}
	if s.EffectiveUntil != nil && day.After(s.EffectiveUntil.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// TimeSlotFilter scopes slot listing queries.
type TimeSlotFilter struct {
	ProfessorID     string
	SubjectDetailID string
	DayOfWeek       DayOfWeek
	ActiveOnly      bool
	Page            int
	PageSize        int
}

// TimeSlotConflict describes an existing slot that blocks a create/update.
type TimeSlotConflict struct {
	SlotID      string    `json:"slot_id"`
	ProfessorID string    `json:"professor_id"`
	DayOfWeek   DayOfWeek `json:"day_of_week"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

// TimeSlotConflictError is returned when a slot overlaps an active slot of
// the same professor on the same weekday.
type TimeSlotConflictError struct {
	Message  string           `json:"message"`
	Conflict TimeSlotConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *TimeSlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// AvailableSlot is the materialized view of one slot on a concrete date.
type AvailableSlot struct {
	SlotID         string `json:"slot_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AvailableSpots int    `json:"available_spots"`
	MaxStudents    int    `json:"max_students"`
}

// DayAvailability groups available slots for a single calendar date.
type DayAvailability struct {
	Date      string          `json:"date"`
	DayOfWeek DayOfWeek       `json:"day_of_week"`
	Slots     []AvailableSlot `json:"slots"`
}
