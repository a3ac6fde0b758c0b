package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/jobs"
	"github.com/noah-isme/sma-advisory-api/pkg/mailer"
)

type notificationRepository interface {
	GetPreference(ctx context.Context, userID string, event models.NotificationEvent) (*models.NotificationPreference, error)
	ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error
	CreateLog(ctx context.Context, log *models.NotificationLog) error
	MarkLog(ctx context.Context, id string, status models.NotificationStatus, errMessage string, sentAt *time.Time) error
	ListLogs(ctx context.Context, recipientID string, limit int) ([]models.NotificationLog, error)
}

type recipientReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type notificationTemplate struct {
	Subject string
	HTML    string
	Text    string
}

// Built-in per-event templates. Tokens use {{key}} substitution; unresolved
// tokens are left verbatim.
var notificationTemplates = map[models.NotificationEvent]notificationTemplate{
	models.EventRequestCreated: {
		Subject: "New advisory request",
		HTML:    "<p>A student has requested an advisory for <b>{{subject}}</b>.</p><p>{{message}}</p>",
		Text:    "A student has requested an advisory for {{subject}}.\n\n{{message}}",
	},
	models.EventRequestApproved: {
		Subject: "Your advisory request was approved",
		HTML:    "<p>Your advisory request was approved.</p><p>{{response}}</p>",
		Text:    "Your advisory request was approved.\n\n{{response}}",
	},
	models.EventRequestRejected: {
		Subject: "Your advisory request was rejected",
		HTML:    "<p>Your advisory request was rejected.</p><p>{{response}}</p>",
		Text:    "Your advisory request was rejected.\n\n{{response}}",
	},
	models.EventRequestCancelled: {
		Subject: "Advisory request cancelled",
		HTML:    "<p>An advisory request you were part of has been cancelled.</p>",
		Text:    "An advisory request you were part of has been cancelled.",
	},
	models.EventSessionInvited: {
		Subject: "Invitation to an advisory session",
		HTML:    "<p>You have been invited to an advisory session on <b>{{date}}</b> about {{topic}}.</p><p>The invitation expires at {{expires_at}}.</p>",
		Text:    "You have been invited to an advisory session on {{date}} about {{topic}}.\nThe invitation expires at {{expires_at}}.",
	},
}

type notificationJob struct {
	LogID    string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// NotificationConfig tunes the dispatch queue.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService renders and dispatches per-event email notifications
// through a background queue. Dispatch is best-effort: callers treat every
// failure as non-fatal.
type NotificationService struct {
	repo    notificationRepository
	users   recipientReader
	mail    mailer.Mailer
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService instantiates NotificationService with its own
// send queue. Call Start before dispatching and Stop on shutdown.
func NewNotificationService(repo notificationRepository, users recipientReader, mail mailer.Mailer, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:    repo,
		users:   users,
		mail:    mail,
		enabled: cfg.Enabled,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send renders the event template for the recipient, writes a pending log
// row and enqueues delivery. Disabled preferences make it a no-op.
func (s *NotificationService) Send(ctx context.Context, recipientID string, event models.NotificationEvent, vars map[string]string) error {
	if !s.enabled {
		return nil
	}
	if !event.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown notification event")
	}
	tmpl, ok := notificationTemplates[event]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown notification event")
	}

	user, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}

	pref, err := s.preference(ctx, recipientID, event)
	if err != nil {
		return err
	}
	if !pref.Enabled {
		return nil
	}

	subject := renderTemplate(tmpl.Subject, vars)
	htmlBody := renderTemplate(tmpl.HTML, vars)
	textBody := renderTemplate(tmpl.Text, vars)

	log := &models.NotificationLog{
		ID:             uuid.NewString(),
		RecipientID:    recipientID,
		Event:          event,
		RecipientEmail: user.Email,
		Subject:        subject,
		Body:           htmlBody,
		Status:         models.NotificationPending,
	}
	if err := s.repo.CreateLog(ctx, log); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}

	job := jobs.Job{
		ID:   log.ID,
		Type: string(event),
		Payload: notificationJob{
			LogID:    log.ID,
			To:       user.Email,
			Subject:  subject,
			HTMLBody: htmlBody,
			TextBody: textBody,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue notification")
	}
	return nil
}

// Preferences returns the recipient's toggle for every known event,
// defaulting to enabled where no row exists yet.
func (s *NotificationService) Preferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	stored, err := s.repo.ListPreferences(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preferences")
	}
	byEvent := make(map[models.NotificationEvent]models.NotificationPreference, len(stored))
	for _, pref := range stored {
		byEvent[pref.Event] = pref
	}

	events := []models.NotificationEvent{
		models.EventRequestCreated,
		models.EventRequestApproved,
		models.EventRequestRejected,
		models.EventRequestCancelled,
		models.EventSessionInvited,
	}
	out := make([]models.NotificationPreference, 0, len(events))
	for _, event := range events {
		if pref, ok := byEvent[event]; ok {
			out = append(out, pref)
			continue
		}
		out = append(out, models.NotificationPreference{UserID: userID, Event: event, Enabled: true})
	}
	return out, nil
}

// UpdatePreference flips the toggle for one event.
func (s *NotificationService) UpdatePreference(ctx context.Context, userID string, event models.NotificationEvent, enabled bool) (*models.NotificationPreference, error) {
	if !event.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification event")
	}
	pref := &models.NotificationPreference{UserID: userID, Event: event, Enabled: enabled}
	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update preference")
	}
	return pref, nil
}

// History returns the recipient's delivery log, newest first.
func (s *NotificationService) History(ctx context.Context, recipientID string, limit int) ([]models.NotificationLog, error) {
	logs, err := s.repo.ListLogs(ctx, recipientID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notification history")
	}
	return logs, nil
}

// preference loads the stored toggle, creating a default-enabled row on
// first access.
func (s *NotificationService) preference(ctx context.Context, userID string, event models.NotificationEvent) (*models.NotificationPreference, error) {
	pref, err := s.repo.GetPreference(ctx, userID, event)
	if err == nil {
		return pref, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preference")
	}

	pref = &models.NotificationPreference{UserID: userID, Event: event, Enabled: true}
	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create preference")
	}
	return pref, nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationJob)
	if !ok {
		s.logger.Error("notification job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	if err := s.mail.Send(payload.To, payload.Subject, payload.HTMLBody, payload.TextBody); err != nil {
		if markErr := s.repo.MarkLog(ctx, payload.LogID, models.NotificationFailed, err.Error(), nil); markErr != nil {
			s.logger.Error("failed to mark notification log", zap.String("log_id", payload.LogID), zap.Error(markErr))
		}
		return err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkLog(ctx, payload.LogID, models.NotificationSent, "", &now); err != nil {
		s.logger.Error("failed to mark notification log", zap.String("log_id", payload.LogID), zap.Error(err))
	}
	return nil
}

// renderTemplate substitutes {{key}} tokens. Tokens without a matching
// variable are left verbatim.
func renderTemplate(tmpl string, vars map[string]string) string {
	out := tmpl
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
