package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/pkg/jobs"
)

type mockNotificationRepo struct {
	pref       *models.NotificationPreference
	prefs      []models.NotificationPreference
	upserted   []models.NotificationPreference
	logs       []*models.NotificationLog
	marked     map[string]models.NotificationStatus
	markErrors map[string]string
}

func (m *mockNotificationRepo) GetPreference(ctx context.Context, userID string, event models.NotificationEvent) (*models.NotificationPreference, error) {
	if m.pref == nil {
		return nil, sql.ErrNoRows
	}
	return m.pref, nil
}

func (m *mockNotificationRepo) ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	return m.prefs, nil
}

func (m *mockNotificationRepo) UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error {
	m.upserted = append(m.upserted, *pref)
	return nil
}

func (m *mockNotificationRepo) CreateLog(ctx context.Context, log *models.NotificationLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockNotificationRepo) MarkLog(ctx context.Context, id string, status models.NotificationStatus, errMessage string, sentAt *time.Time) error {
	if m.marked == nil {
		m.marked = map[string]models.NotificationStatus{}
		m.markErrors = map[string]string{}
	}
	m.marked[id] = status
	m.markErrors[id] = errMessage
	return nil
}

func (m *mockNotificationRepo) ListLogs(ctx context.Context, recipientID string, limit int) ([]models.NotificationLog, error) {
	return nil, nil
}

type mockRecipientReader struct {
	user *models.User
}

func (m *mockRecipientReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) Send(to, subject, htmlBody, textBody string) error {
	m.sent = append(m.sent, to)
	return m.err
}

func newNotificationService(repo *mockNotificationRepo, mail *mockMailer) *NotificationService {
	users := &mockRecipientReader{user: &models.User{ID: "user-1", Email: "user@example.com"}}
	return NewNotificationService(repo, users, mail, NotificationConfig{Enabled: true, Workers: 1, BufferSize: 8}, zap.NewNop())
}

func TestNotificationSendWritesLog(t *testing.T) {
	repo := &mockNotificationRepo{}
	mail := &mockMailer{}
	svc := newNotificationService(repo, mail)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	err := svc.Send(ctx, "user-1", models.EventRequestApproved, map[string]string{"response": "see you Monday"})
	require.NoError(t, err)

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, models.EventRequestApproved, log.Event)
	assert.Equal(t, "user@example.com", log.RecipientEmail)
	assert.Contains(t, log.Body, "see you Monday")

	// First send auto-creates a default-enabled preference row.
	require.Len(t, repo.upserted, 1)
	assert.True(t, repo.upserted[0].Enabled)
}

func TestNotificationHandleJobMarksSent(t *testing.T) {
	repo := &mockNotificationRepo{}
	mail := &mockMailer{}
	svc := newNotificationService(repo, mail)

	err := svc.handleJob(context.Background(), jobs.Job{
		ID: "job-1",
		Payload: notificationJob{
			LogID: "log-1", To: "user@example.com", Subject: "s", HTMLBody: "h", TextBody: "t",
		},
	})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "user@example.com", mail.sent[0])
	assert.Equal(t, models.NotificationSent, repo.marked["log-1"])
}

func TestNotificationSendSkipsDisabledPreference(t *testing.T) {
	repo := &mockNotificationRepo{pref: &models.NotificationPreference{
		UserID: "user-1", Event: models.EventRequestApproved, Enabled: false,
	}}
	mail := &mockMailer{}
	svc := newNotificationService(repo, mail)

	err := svc.Send(context.Background(), "user-1", models.EventRequestApproved, nil)
	require.NoError(t, err)
	assert.Empty(t, repo.logs)
	assert.Empty(t, mail.sent)
}

func TestNotificationSendDisabledServiceIsNoop(t *testing.T) {
	repo := &mockNotificationRepo{}
	users := &mockRecipientReader{user: &models.User{ID: "user-1", Email: "user@example.com"}}
	svc := NewNotificationService(repo, users, &mockMailer{}, NotificationConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, svc.Send(context.Background(), "user-1", models.EventRequestApproved, nil))
	assert.Empty(t, repo.logs)
}

func TestNotificationHandleJobMarksFailure(t *testing.T) {
	repo := &mockNotificationRepo{}
	mail := &mockMailer{err: errors.New("smtp down")}
	svc := newNotificationService(repo, mail)

	err := svc.handleJob(context.Background(), jobs.Job{
		ID: "job-1",
		Payload: notificationJob{
			LogID: "log-1", To: "user@example.com", Subject: "s", HTMLBody: "h", TextBody: "t",
		},
	})
	require.Error(t, err)
	assert.Equal(t, models.NotificationFailed, repo.marked["log-1"])
	assert.Equal(t, "smtp down", repo.markErrors["log-1"])
}

func TestNotificationPreferencesDefaultEnabled(t *testing.T) {
	repo := &mockNotificationRepo{prefs: []models.NotificationPreference{
		{UserID: "user-1", Event: models.EventRequestRejected, Enabled: false},
	}}
	svc := newNotificationService(repo, &mockMailer{})

	prefs, err := svc.Preferences(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, prefs, 5)

	byEvent := map[models.NotificationEvent]bool{}
	for _, pref := range prefs {
		byEvent[pref.Event] = pref.Enabled
	}
	assert.False(t, byEvent[models.EventRequestRejected])
	assert.True(t, byEvent[models.EventRequestCreated])
	assert.True(t, byEvent[models.EventSessionInvited])
}

func TestRenderTemplateLeavesUnknownTokens(t *testing.T) {
	out := renderTemplate("Hello {{name}}, your slot is {{slot}}", map[string]string{"name": "Ada"})
	assert.Equal(t, "Hello Ada, your slot is {{slot}}", out)
}
