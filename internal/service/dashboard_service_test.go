package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/dto"
	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type mockDashboardRequests struct {
	requests []models.AdvisoryRequest
	pending  int
}

func (m *mockDashboardRequests) List(ctx context.Context, filter models.AdvisoryRequestFilter) ([]models.AdvisoryRequest, error) {
	return m.requests, nil
}

func (m *mockDashboardRequests) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	return m.pending, nil
}

type mockDashboardSessions struct {
	dates []models.AdvisoryDate
}

func (m *mockDashboardSessions) ListDatesByProfessorOn(ctx context.Context, professorID string, day time.Time) ([]models.AdvisoryDate, error) {
	return m.dates, nil
}

func (m *mockDashboardSessions) ListUpcomingDatesForStudent(ctx context.Context, studentID string, from time.Time) ([]models.AdvisoryDate, error) {
	return m.dates, nil
}

type mockDashboardSlots struct {
	slots []models.TimeSlot
}

func (m *mockDashboardSlots) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	return m.slots, nil
}

type mockDashboardInvitations struct {
	invitations []models.StudentInvitation
}

func (m *mockDashboardInvitations) ListByStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error) {
	return m.invitations, nil
}

type mockDashboardUsers struct {
	totals map[models.UserRole]int
}

func (m *mockDashboardUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if filter.Role == nil {
		return nil, 0, nil
	}
	return nil, m.totals[*filter.Role], nil
}

func newDashboardService(requests *mockDashboardRequests, sessions *mockDashboardSessions, slots *mockDashboardSlots, invitations *mockDashboardInvitations, users *mockDashboardUsers) *DashboardService {
	return NewDashboardService(requests, sessions, slots, invitations, users, nil, nil, time.Minute, zap.NewNop())
}

func TestDashboardProfessor(t *testing.T) {
	requests := &mockDashboardRequests{requests: []models.AdvisoryRequest{{ID: "req-1", Status: models.RequestPending}}}
	sessions := &mockDashboardSessions{dates: []models.AdvisoryDate{{ID: "date-1"}}}
	slots := &mockDashboardSlots{slots: []models.TimeSlot{{ID: "slot-1"}, {ID: "slot-2"}}}
	svc := newDashboardService(requests, sessions, slots, &mockDashboardInvitations{}, &mockDashboardUsers{})

	resp, cached, err := svc.Get(context.Background(), "prof-1", models.RoleProfessor)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, dto.DashboardProfessor, resp.Role)
	require.NotNil(t, resp.Professor)
	assert.Len(t, resp.Professor.PendingRequests, 1)
	assert.Len(t, resp.Professor.TodaySessions, 1)
	assert.Len(t, resp.Professor.ActiveSlots, 2)
	assert.Nil(t, resp.Student)
	assert.Nil(t, resp.Admin)
}

func TestDashboardStudentFiltersOpenInvitations(t *testing.T) {
	now := time.Now().UTC()
	invitations := &mockDashboardInvitations{invitations: []models.StudentInvitation{
		{ID: "inv-1", Status: models.InvitationPending, ExpiresAt: now.Add(time.Hour)},
		{ID: "inv-2", Status: models.InvitationPending, ExpiresAt: now.Add(-time.Hour)},
		{ID: "inv-3", Status: models.InvitationAccepted, ExpiresAt: now.Add(time.Hour)},
	}}
	svc := newDashboardService(&mockDashboardRequests{}, &mockDashboardSessions{}, &mockDashboardSlots{}, invitations, &mockDashboardUsers{})

	resp, _, err := svc.Get(context.Background(), "student-1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardStudent, resp.Role)
	require.NotNil(t, resp.Student)
	// Only live pending invitations count as open.
	require.Len(t, resp.Student.OpenInvitations, 1)
	assert.Equal(t, "inv-1", resp.Student.OpenInvitations[0].ID)
}

func TestDashboardAdmin(t *testing.T) {
	users := &mockDashboardUsers{totals: map[models.UserRole]int{
		models.RoleProfessor: 12,
		models.RoleStudent:   240,
	}}
	requests := &mockDashboardRequests{pending: 7}
	svc := newDashboardService(requests, &mockDashboardSessions{}, &mockDashboardSlots{}, &mockDashboardInvitations{}, users)

	resp, _, err := svc.Get(context.Background(), "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardAdmin, resp.Role)
	require.NotNil(t, resp.Admin)
	assert.Equal(t, 12, resp.Admin.TotalProfessors)
	assert.Equal(t, 240, resp.Admin.TotalStudents)
	assert.Equal(t, 7, resp.Admin.OpenRequests)
}

func TestDashboardUnknownRole(t *testing.T) {
	svc := newDashboardService(&mockDashboardRequests{}, &mockDashboardSessions{}, &mockDashboardSlots{}, &mockDashboardInvitations{}, &mockDashboardUsers{})

	_, _, err := svc.Get(context.Background(), "user-1", models.UserRole("GHOST"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
