package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type mockInvitationRepo struct {
	byID     *models.StudentInvitation
	pending  *models.StudentInvitation
	mine     []models.StudentInvitation
	created  *models.StudentInvitation
	statuses map[string]models.InvitationStatus
}

func (m *mockInvitationRepo) FindByID(ctx context.Context, id string) (*models.StudentInvitation, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockInvitationRepo) FindPending(ctx context.Context, advisoryDateID, studentID string) (*models.StudentInvitation, error) {
	if m.pending == nil {
		return nil, sql.ErrNoRows
	}
	return m.pending, nil
}

func (m *mockInvitationRepo) ListByStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error) {
	return m.mine, nil
}

func (m *mockInvitationRepo) ListBySession(ctx context.Context, advisoryDateID string) ([]models.StudentInvitation, error) {
	return m.mine, nil
}

func (m *mockInvitationRepo) Create(ctx context.Context, invitation *models.StudentInvitation) error {
	m.created = invitation
	return nil
}

func (m *mockInvitationRepo) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus) error {
	if m.statuses == nil {
		m.statuses = map[string]models.InvitationStatus{}
	}
	m.statuses[id] = status
	return nil
}

func ownedSession() *mockAdvisoryRepo {
	return &mockAdvisoryRepo{
		advisory: &models.Advisory{ID: "adv-1", ProfessorID: "prof-1", MaxStudents: 5},
		date:     &models.AdvisoryDate{ID: "date-1", AdvisoryID: "adv-1", Topic: "Derivatives", Date: mondayDate},
	}
}

func newInvitationService(repo *mockInvitationRepo, advisories *mockAdvisoryRepo, notifier *mockNotifier) *InvitationService {
	enrol := NewAdvisoryService(advisories, activeDetail(), &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{}, validator.New(), zap.NewNop())
	var sender notificationSender
	if notifier != nil {
		sender = notifier
	}
	return NewInvitationService(repo, advisories, enrol, sender, time.Hour, validator.New(), zap.NewNop())
}

func TestInvitationInvite(t *testing.T) {
	repo := &mockInvitationRepo{}
	notifier := &mockNotifier{}
	svc := newInvitationService(repo, ownedSession(), notifier)

	invitation, err := svc.Invite(context.Background(), "prof-1", InviteRequest{AdvisoryDateID: "date-1", StudentID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, invitation.Status)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), invitation.ExpiresAt, time.Minute)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "student-1", notifier.sent[0].Recipient)
	assert.Equal(t, models.EventSessionInvited, notifier.sent[0].Event)
}

func TestInvitationInviteForbiddenForNonOwner(t *testing.T) {
	svc := newInvitationService(&mockInvitationRepo{}, ownedSession(), nil)

	_, err := svc.Invite(context.Background(), "prof-2", InviteRequest{AdvisoryDateID: "date-1", StudentID: "student-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInvitationInviteRejectsRegisteredStudent(t *testing.T) {
	advisories := ownedSession()
	advisories.hasStudent = true
	svc := newInvitationService(&mockInvitationRepo{}, advisories, nil)

	_, err := svc.Invite(context.Background(), "prof-1", InviteRequest{AdvisoryDateID: "date-1", StudentID: "student-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestInvitationInviteRejectsOpenDuplicate(t *testing.T) {
	repo := &mockInvitationRepo{pending: &models.StudentInvitation{
		ID: "inv-1", Status: models.InvitationPending, ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	_, err := svc.Invite(context.Background(), "prof-1", InviteRequest{AdvisoryDateID: "date-1", StudentID: "student-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestInvitationInviteExpiresStalePendingAndProceeds(t *testing.T) {
	repo := &mockInvitationRepo{pending: &models.StudentInvitation{
		ID: "inv-1", Status: models.InvitationPending, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	invitation, err := svc.Invite(context.Background(), "prof-1", InviteRequest{AdvisoryDateID: "date-1", StudentID: "student-1"})
	require.NoError(t, err)
	assert.NotNil(t, invitation)
	assert.Equal(t, models.InvitationExpired, repo.statuses["inv-1"])
}

func TestInvitationRespondAccept(t *testing.T) {
	advisories := ownedSession()
	repo := &mockInvitationRepo{byID: &models.StudentInvitation{
		ID: "inv-1", AdvisoryDateID: "date-1", StudentID: "student-1",
		Status: models.InvitationPending, ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc := newInvitationService(repo, advisories, nil)

	invitation, err := svc.Respond(context.Background(), "inv-1", "student-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, invitation.Status)
	require.Len(t, advisories.added, 1)
	assert.Equal(t, "student-1", advisories.added[0].StudentID)
}

func TestInvitationRespondDecline(t *testing.T) {
	advisories := ownedSession()
	repo := &mockInvitationRepo{byID: &models.StudentInvitation{
		ID: "inv-1", AdvisoryDateID: "date-1", StudentID: "student-1",
		Status: models.InvitationPending, ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc := newInvitationService(repo, advisories, nil)

	invitation, err := svc.Respond(context.Background(), "inv-1", "student-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, invitation.Status)
	assert.Empty(t, advisories.added)
}

func TestInvitationRespondExpiredLazily(t *testing.T) {
	repo := &mockInvitationRepo{byID: &models.StudentInvitation{
		ID: "inv-1", AdvisoryDateID: "date-1", StudentID: "student-1",
		Status: models.InvitationPending, ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	_, err := svc.Respond(context.Background(), "inv-1", "student-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.InvitationExpired, repo.statuses["inv-1"])
}

func TestInvitationRespondWrongStudent(t *testing.T) {
	repo := &mockInvitationRepo{byID: &models.StudentInvitation{
		ID: "inv-1", StudentID: "student-1", Status: models.InvitationPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	_, err := svc.Respond(context.Background(), "inv-1", "student-2", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInvitationRespondAlreadyAnswered(t *testing.T) {
	repo := &mockInvitationRepo{byID: &models.StudentInvitation{
		ID: "inv-1", StudentID: "student-1", Status: models.InvitationDeclined,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	_, err := svc.Respond(context.Background(), "inv-1", "student-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestInvitationListForStudentExpiresLazily(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockInvitationRepo{mine: []models.StudentInvitation{
		{ID: "inv-1", Status: models.InvitationPending, ExpiresAt: now.Add(-time.Hour)},
		{ID: "inv-2", Status: models.InvitationPending, ExpiresAt: now.Add(time.Hour)},
		{ID: "inv-3", Status: models.InvitationAccepted, ExpiresAt: now.Add(-time.Hour)},
	}}
	svc := newInvitationService(repo, ownedSession(), nil)

	invitations, err := svc.ListForStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, invitations, 3)
	assert.Equal(t, models.InvitationExpired, invitations[0].Status)
	assert.Equal(t, models.InvitationPending, invitations[1].Status)
	// Answered invitations are never flipped by lazy expiry.
	assert.Equal(t, models.InvitationAccepted, invitations[2].Status)
	assert.Equal(t, models.InvitationExpired, repo.statuses["inv-1"])
	_, touched := repo.statuses["inv-2"]
	assert.False(t, touched)
}
