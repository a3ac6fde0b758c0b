package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type mockTimeSlotRepo struct {
	slotByID    *models.TimeSlot
	findErr     error
	activeSlots []models.TimeSlot
	listErr     error
	created     *models.TimeSlot
	createErr   error
	updated     *models.TimeSlot
	deactivated []string
	deleted     []string
	futureDates int
}

func (m *mockTimeSlotRepo) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.slotByID, nil
}

func (m *mockTimeSlotRepo) ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.activeSlots, nil
}

func (m *mockTimeSlotRepo) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	return m.activeSlots, nil
}

func (m *mockTimeSlotRepo) Create(ctx context.Context, slot *models.TimeSlot) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = slot
	return nil
}

func (m *mockTimeSlotRepo) Update(ctx context.Context, slot *models.TimeSlot) error {
	m.updated = slot
	return nil
}

func (m *mockTimeSlotRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockTimeSlotRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTimeSlotRepo) CountFutureDates(ctx context.Context, slotID string, from time.Time) (int, error) {
	return m.futureDates, nil
}

func newTimeSlotService(repo *mockTimeSlotRepo) *TimeSlotService {
	return NewTimeSlotService(repo, nil, validator.New(), zap.NewNop())
}

func TestTimeSlotCreate(t *testing.T) {
	repo := &mockTimeSlotRepo{}
	svc := newTimeSlotService(repo)

	slot, err := svc.Create(context.Background(), "prof-1", CreateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:00",
		EndTime:             "11:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
		IsRecurring:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, "prof-1", slot.ProfessorID)
	assert.True(t, slot.IsActive)
	assert.NotNil(t, repo.created)
}

func TestTimeSlotCreateRejectsOverlap(t *testing.T) {
	repo := &mockTimeSlotRepo{
		activeSlots: []models.TimeSlot{
			{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "12:00"},
		},
	}
	svc := newTimeSlotService(repo)

	_, err := svc.Create(context.Background(), "prof-1", CreateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:00",
		EndTime:             "10:30",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var conflict *models.TimeSlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "slot-1", conflict.Conflict.SlotID)
}

func TestTimeSlotCreateAllowsAdjacentWindows(t *testing.T) {
	repo := &mockTimeSlotRepo{
		activeSlots: []models.TimeSlot{
			{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "12:00"},
		},
	}
	svc := newTimeSlotService(repo)

	// [09:00, 10:00) touches but does not overlap [10:00, 12:00).
	_, err := svc.Create(context.Background(), "prof-1", CreateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:00",
		EndTime:             "10:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.NoError(t, err)
}

func TestTimeSlotCreateRejectsInvalidWindow(t *testing.T) {
	svc := newTimeSlotService(&mockTimeSlotRepo{})

	_, err := svc.Create(context.Background(), "prof-1", CreateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "11:00",
		EndTime:             "09:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "prof-1", CreateTimeSlotRequest{
		DayOfWeek:           "FUNDAY",
		StartTime:           "09:00",
		EndTime:             "11:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimeSlotUpdateIgnoresOwnWindow(t *testing.T) {
	existing := &models.TimeSlot{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "11:00", IsActive: true}
	repo := &mockTimeSlotRepo{
		slotByID:    existing,
		activeSlots: []models.TimeSlot{*existing},
	}
	svc := newTimeSlotService(repo)

	updated, err := svc.Update(context.Background(), "slot-1", "prof-1", models.RoleProfessor, UpdateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:30",
		EndTime:             "11:30",
		MaxStudentsPerSlot:  4,
		SlotDurationMinutes: 30,
		IsActive:            true,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", updated.StartTime)
	assert.Equal(t, 4, updated.MaxStudentsPerSlot)
}

func TestTimeSlotUpdateForbiddenForOtherProfessor(t *testing.T) {
	repo := &mockTimeSlotRepo{
		slotByID: &models.TimeSlot{ID: "slot-1", ProfessorID: "prof-1"},
	}
	svc := newTimeSlotService(repo)

	_, err := svc.Update(context.Background(), "slot-1", "prof-2", models.RoleProfessor, UpdateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:00",
		EndTime:             "11:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTimeSlotUpdateAdminBypassesOwnership(t *testing.T) {
	repo := &mockTimeSlotRepo{
		slotByID: &models.TimeSlot{ID: "slot-1", ProfessorID: "prof-1"},
	}
	svc := newTimeSlotService(repo)

	_, err := svc.Update(context.Background(), "slot-1", "admin-1", models.RoleAdmin, UpdateTimeSlotRequest{
		DayOfWeek:           "MONDAY",
		StartTime:           "09:00",
		EndTime:             "11:00",
		MaxStudentsPerSlot:  3,
		SlotDurationMinutes: 30,
	})
	require.NoError(t, err)
}

func TestTimeSlotDeleteBlockedByUpcomingSessions(t *testing.T) {
	repo := &mockTimeSlotRepo{
		slotByID:    &models.TimeSlot{ID: "slot-1", ProfessorID: "prof-1"},
		futureDates: 2,
	}
	svc := newTimeSlotService(repo)

	err := svc.Delete(context.Background(), "slot-1", "prof-1", models.RoleProfessor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Deactivate(context.Background(), "slot-1", "prof-1", models.RoleProfessor))
	assert.Equal(t, []string{"slot-1"}, repo.deactivated)
}

func TestTimeSlotGetNotFound(t *testing.T) {
	repo := &mockTimeSlotRepo{findErr: sql.ErrNoRows}
	svc := newTimeSlotService(repo)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
