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

type mockAdvisoryRepo struct {
	advisory     *models.Advisory
	date         *models.AdvisoryDate
	participants int
	hasStudent   bool
	created      *models.Advisory
	schedules    []models.AdvisorySchedule
	dates        []models.AdvisoryDate
	added        []models.AdvisoryParticipant
}

func (m *mockAdvisoryRepo) FindByID(ctx context.Context, id string) (*models.Advisory, error) {
	if m.advisory == nil {
		return nil, sql.ErrNoRows
	}
	return m.advisory, nil
}

func (m *mockAdvisoryRepo) List(ctx context.Context, filter models.AdvisoryFilter) ([]models.Advisory, error) {
	return nil, nil
}

func (m *mockAdvisoryRepo) Create(ctx context.Context, advisory *models.Advisory) error {
	m.created = advisory
	return nil
}

func (m *mockAdvisoryRepo) CreateSchedule(ctx context.Context, schedule *models.AdvisorySchedule) error {
	m.schedules = append(m.schedules, *schedule)
	return nil
}

func (m *mockAdvisoryRepo) ListSchedules(ctx context.Context, advisoryID string) ([]models.AdvisorySchedule, error) {
	return m.schedules, nil
}

func (m *mockAdvisoryRepo) CreateDate(ctx context.Context, date *models.AdvisoryDate) error {
	m.dates = append(m.dates, *date)
	return nil
}

func (m *mockAdvisoryRepo) FindDateByID(ctx context.Context, id string) (*models.AdvisoryDate, error) {
	if m.date == nil {
		return nil, sql.ErrNoRows
	}
	return m.date, nil
}

func (m *mockAdvisoryRepo) ListDates(ctx context.Context, advisoryID string) ([]models.AdvisoryDate, error) {
	return m.dates, nil
}

func (m *mockAdvisoryRepo) ListUpcomingDatesForStudent(ctx context.Context, studentID string, from time.Time) ([]models.AdvisoryDate, error) {
	return m.dates, nil
}

func (m *mockAdvisoryRepo) AddParticipant(ctx context.Context, participant *models.AdvisoryParticipant) error {
	m.added = append(m.added, *participant)
	return nil
}

func (m *mockAdvisoryRepo) HasParticipant(ctx context.Context, advisoryDateID, studentID string) (bool, error) {
	return m.hasStudent, nil
}

func (m *mockAdvisoryRepo) CountParticipants(ctx context.Context, advisoryDateID string) (int, error) {
	return m.participants, nil
}

type mockVenueReader struct {
	venue *models.Venue
}

func (m *mockVenueReader) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	if m.venue == nil {
		return nil, sql.ErrNoRows
	}
	return m.venue, nil
}

type mockSlotReader struct {
	slot *models.TimeSlot
}

func (m *mockSlotReader) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	if m.slot == nil {
		return nil, sql.ErrNoRows
	}
	return m.slot, nil
}

type mockRequestReader struct {
	request *models.AdvisoryRequest
}

func (m *mockRequestReader) FindByID(ctx context.Context, id string) (*models.AdvisoryRequest, error) {
	if m.request == nil {
		return nil, sql.ErrNoRows
	}
	return m.request, nil
}

func newAdvisoryService(repo *mockAdvisoryRepo, venues *mockVenueReader, slots *mockSlotReader, requests *mockRequestReader) *AdvisoryService {
	return NewAdvisoryService(repo, activeDetail(), venues, slots, requests, validator.New(), zap.NewNop())
}

func TestAdvisoryCreateChecksAssignment(t *testing.T) {
	repo := &mockAdvisoryRepo{}
	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{})

	advisory, err := svc.Create(context.Background(), "prof-1", CreateAdvisoryRequest{SubjectDetailID: "detail-1", MaxStudents: 5})
	require.NoError(t, err)
	assert.Equal(t, "prof-1", advisory.ProfessorID)

	_, err = svc.Create(context.Background(), "prof-2", CreateAdvisoryRequest{SubjectDetailID: "detail-1", MaxStudents: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdvisoryCreateFromRequest(t *testing.T) {
	requests := &mockRequestReader{request: &models.AdvisoryRequest{
		ID: "req-1", StudentID: "student-1", ProfessorID: "prof-1", SubjectDetailID: "detail-1", Status: models.RequestApproved,
	}}
	repo := &mockAdvisoryRepo{}
	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, requests)

	advisory, err := svc.CreateFromRequest(context.Background(), "req-1", "prof-1", 4, "weekly session")
	require.NoError(t, err)
	assert.Equal(t, "detail-1", advisory.SubjectDetailID)
	assert.Equal(t, 4, advisory.MaxStudents)
}

func TestAdvisoryCreateFromRequestNotApproved(t *testing.T) {
	requests := &mockRequestReader{request: &models.AdvisoryRequest{
		ID: "req-1", ProfessorID: "prof-1", SubjectDetailID: "detail-1", Status: models.RequestPending,
	}}
	svc := newAdvisoryService(&mockAdvisoryRepo{}, &mockVenueReader{}, &mockSlotReader{}, requests)

	_, err := svc.CreateFromRequest(context.Background(), "req-1", "prof-1", 4, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAdvisoryAddScheduleValidatesWindow(t *testing.T) {
	repo := &mockAdvisoryRepo{advisory: &models.Advisory{ID: "adv-1", ProfessorID: "prof-1"}}
	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{})

	schedule, err := svc.AddSchedule(context.Background(), "adv-1", "prof-1", AddScheduleRequest{
		DayOfWeek: "TUESDAY", BeginTime: "13:00", EndTime: "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Tuesday, schedule.DayOfWeek)

	_, err = svc.AddSchedule(context.Background(), "adv-1", "prof-1", AddScheduleRequest{
		DayOfWeek: "TUESDAY", BeginTime: "15:00", EndTime: "13:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdvisoryAddDateValidatesVenueAndSlot(t *testing.T) {
	repo := &mockAdvisoryRepo{advisory: &models.Advisory{ID: "adv-1", ProfessorID: "prof-1"}}
	slotID := "slot-1"

	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{})
	_, err := svc.AddDate(context.Background(), "adv-1", "prof-1", AddDateRequest{
		Topic: "Integrals", Date: mondayDate, VenueID: "venue-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	venues := &mockVenueReader{venue: &models.Venue{ID: "venue-1", Active: true}}
	slots := &mockSlotReader{slot: &models.TimeSlot{ID: slotID, ProfessorID: "prof-2"}}
	svc = newAdvisoryService(repo, venues, slots, &mockRequestReader{})
	_, err = svc.AddDate(context.Background(), "adv-1", "prof-1", AddDateRequest{
		TimeSlotID: &slotID, Topic: "Integrals", Date: mondayDate, VenueID: "venue-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	slots.slot.ProfessorID = "prof-1"
	date, err := svc.AddDate(context.Background(), "adv-1", "prof-1", AddDateRequest{
		TimeSlotID: &slotID, Topic: "Integrals", Date: mondayDate, VenueID: "venue-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "adv-1", date.AdvisoryID)
	require.NotNil(t, date.TimeSlotID)
	assert.Equal(t, slotID, *date.TimeSlotID)
}

func TestAdvisoryAddParticipantCapacity(t *testing.T) {
	repo := &mockAdvisoryRepo{
		advisory:     &models.Advisory{ID: "adv-1", ProfessorID: "prof-1", MaxStudents: 2},
		date:         &models.AdvisoryDate{ID: "date-1", AdvisoryID: "adv-1"},
		participants: 2,
	}
	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{})

	_, err := svc.AddParticipant(context.Background(), "date-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.participants = 1
	participant, err := svc.AddParticipant(context.Background(), "date-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", participant.StudentID)
}

func TestAdvisoryAddParticipantAlreadyRegistered(t *testing.T) {
	repo := &mockAdvisoryRepo{
		advisory:   &models.Advisory{ID: "adv-1", MaxStudents: 5},
		date:       &models.AdvisoryDate{ID: "date-1", AdvisoryID: "adv-1"},
		hasStudent: true,
	}
	svc := newAdvisoryService(repo, &mockVenueReader{}, &mockSlotReader{}, &mockRequestReader{})

	_, err := svc.AddParticipant(context.Background(), "date-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
