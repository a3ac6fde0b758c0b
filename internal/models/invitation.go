package models

import "time"

// InvitationStatus enumerates invitation lifecycle states.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// StudentInvitation is a professor-initiated ask for a specific student to
// join a dated session. Expiry is evaluated lazily on read or response.
type StudentInvitation struct {
	ID             string           `db:"id" json:"id"`
	AdvisoryDateID string           `db:"advisory_date_id" json:"advisory_date_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	InvitedByID    string           `db:"invited_by_id" json:"invited_by_id"`
	Status         InvitationStatus `db:"status" json:"status"`
	ExpiresAt      time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the invitation's deadline has passed.
func (i *StudentInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
