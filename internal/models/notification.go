package models

import "time"

// NotificationEvent identifies a workflow transition that may notify a user.
type NotificationEvent string

const (
	EventRequestCreated   NotificationEvent = "request_created"
	EventRequestApproved  NotificationEvent = "request_approved"
	EventRequestRejected  NotificationEvent = "request_rejected"
	EventRequestCancelled NotificationEvent = "request_cancelled"
	EventSessionInvited   NotificationEvent = "session_invited"
)

// Valid returns true when the event is a supported value.
func (e NotificationEvent) Valid() bool {
	switch e {
	case EventRequestCreated, EventRequestApproved, EventRequestRejected,
		EventRequestCancelled, EventSessionInvited:
		return true
	default:
		return false
	}
}

// NotificationPreference is a per-user, per-event opt-out toggle. Records
// are created enabled on first access.
type NotificationPreference struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Event     NotificationEvent `db:"event" json:"event"`
	Enabled   bool              `db:"enabled" json:"enabled"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// NotificationStatus tracks delivery of a queued notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationLog is the audit row written before a send job is enqueued
// and updated by the job processor with the delivery outcome.
type NotificationLog struct {
	ID             string             `db:"id" json:"id"`
	RecipientID    string             `db:"recipient_id" json:"recipient_id"`
	Event          NotificationEvent  `db:"event" json:"event"`
	RecipientEmail string             `db:"recipient_email" json:"recipient_email"`
	Subject        string             `db:"subject" json:"subject"`
	Body           string             `db:"body" json:"body"`
	Status         NotificationStatus `db:"status" json:"status"`
	Error          string             `db:"error" json:"error"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	SentAt         *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}
