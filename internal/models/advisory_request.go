package models

import "time"

// RequestStatus enumerates advisory request lifecycle states.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the one-directional lifecycle allows
// moving from the current status to the target.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestPending:
		return target == RequestApproved || target == RequestRejected || target == RequestCancelled
	case RequestApproved:
		return target == RequestCancelled
	default:
		return false
	}
}

// AdvisoryRequest is a student's ask for tutoring against a subject detail.
// At most one PENDING request may exist per (student, subject detail) pair.
type AdvisoryRequest struct {
	ID                string        `db:"id" json:"id"`
	StudentID         string        `db:"student_id" json:"student_id"`
	ProfessorID       string        `db:"professor_id" json:"professor_id"`
	SubjectDetailID   string        `db:"subject_detail_id" json:"subject_detail_id"`
	Status            RequestStatus `db:"status" json:"status"`
	StudentMessage    string        `db:"student_message" json:"student_message"`
	ProfessorResponse string        `db:"professor_response" json:"professor_response"`
	ProcessedAt       *time.Time    `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedByID     *string       `db:"processed_by_id" json:"processed_by_id,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// AdvisoryRequestFilter scopes request listing queries.
type AdvisoryRequestFilter struct {
	StudentID       string
	ProfessorID     string
	SubjectDetailID string
	Status          *RequestStatus
	Page            int
	PageSize        int
}
