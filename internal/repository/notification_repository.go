package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

// NotificationRepository persists notification preferences and the
// delivery audit log.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// GetPreference returns the stored preference for a user/event pair.
func (r *NotificationRepository) GetPreference(ctx context.Context, userID string, event models.NotificationEvent) (*models.NotificationPreference, error) {
	const query = `SELECT id, user_id, event, enabled, created_at, updated_at FROM notification_preferences WHERE user_id = $1 AND event = $2 LIMIT 1`
	var pref models.NotificationPreference
	if err := r.db.GetContext(ctx, &pref, query, userID, event); err != nil {
		return nil, err
	}
	return &pref, nil
}

// ListPreferences returns all stored preferences for a user.
func (r *NotificationRepository) ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	const query = `SELECT id, user_id, event, enabled, created_at, updated_at FROM notification_preferences WHERE user_id = $1 ORDER BY event`
	var prefs []models.NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query, userID); err != nil {
		return nil, fmt.Errorf("list notification preferences: %w", err)
	}
	return prefs, nil
}

// UpsertPreference creates or updates a preference row.
func (r *NotificationRepository) UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	const query = `INSERT INTO notification_preferences (id, user_id, event, enabled, created_at, updated_at)
		VALUES (:id, :user_id, :event, :enabled, :created_at, :updated_at)
		ON CONFLICT (user_id, event) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert notification preference: %w", err)
	}
	return nil
}

// CreateLog writes a pending delivery audit row.
func (r *NotificationRepository) CreateLog(ctx context.Context, log *models.NotificationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_logs (id, recipient_id, event, recipient_email, subject, body, status, error, created_at, sent_at)
		VALUES (:id, :recipient_id, :event, :recipient_email, :subject, :body, :status, :error, :created_at, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}

// MarkLog records the delivery outcome for a log row.
func (r *NotificationRepository) MarkLog(ctx context.Context, id string, status models.NotificationStatus, errMessage string, sentAt *time.Time) error {
	const query = `UPDATE notification_logs SET status = $2, error = $3, sent_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, errMessage, sentAt); err != nil {
		return fmt.Errorf("mark notification log: %w", err)
	}
	return nil
}

// ListLogs returns the delivery history for a recipient, newest first.
func (r *NotificationRepository) ListLogs(ctx context.Context, recipientID string, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, recipient_id, event, recipient_email, subject, body, status, error, created_at, sent_at FROM notification_logs WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var logs []models.NotificationLog
	if err := r.db.SelectContext(ctx, &logs, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, nil
}
