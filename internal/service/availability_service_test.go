package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type mockAvailabilitySlots struct {
	byDay map[models.DayOfWeek][]models.TimeSlot
}

func (m *mockAvailabilitySlots) ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error) {
	return m.byDay[day], nil
}

type mockBookingCounter struct {
	counts map[string]int
}

func (m *mockBookingCounter) CountBookings(ctx context.Context, timeSlotID string, date time.Time) (int, error) {
	return m.counts[timeSlotID], nil
}

type mockDetailReader struct {
	detail *models.SubjectDetailInfo
	err    error
}

func (m *mockDetailReader) FindDetailByID(ctx context.Context, id string) (*models.SubjectDetailInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

// 2026-01-05 is a Monday.
var mondayDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestGetAvailableSlotsComputesRemainingSpots(t *testing.T) {
	slots := &mockAvailabilitySlots{byDay: map[models.DayOfWeek][]models.TimeSlot{
		models.Monday: {
			{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00", MaxStudentsPerSlot: 3, IsActive: true},
			{ID: "slot-2", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "11:00", MaxStudentsPerSlot: 2, IsActive: true},
		},
	}}
	bookings := &mockBookingCounter{counts: map[string]int{"slot-1": 1, "slot-2": 2}}
	svc := NewAvailabilityService(slots, bookings, &mockDetailReader{}, nil, 0, 0, zap.NewNop())

	available, err := svc.GetAvailableSlots(context.Background(), "prof-1", "", mondayDate)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, 2, available[0].AvailableSpots)
	// Fully booked slots stay visible with zero spots.
	assert.Equal(t, 0, available[1].AvailableSpots)
}

func TestGetAvailableSlotsFiltersBySubjectAndEffectiveWindow(t *testing.T) {
	other := "detail-other"
	until := mondayDate.AddDate(0, 0, -1)
	slots := &mockAvailabilitySlots{byDay: map[models.DayOfWeek][]models.TimeSlot{
		models.Monday: {
			{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00", MaxStudentsPerSlot: 3},
			{ID: "slot-2", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "11:00", MaxStudentsPerSlot: 3, SubjectDetailID: &other},
			{ID: "slot-3", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "11:00", EndTime: "12:00", MaxStudentsPerSlot: 3, EffectiveUntil: &until},
		},
	}}
	svc := NewAvailabilityService(slots, &mockBookingCounter{counts: map[string]int{}}, &mockDetailReader{}, nil, 0, 0, zap.NewNop())

	available, err := svc.GetAvailableSlots(context.Background(), "prof-1", "detail-1", mondayDate)
	require.NoError(t, err)
	// slot-1 has no subject binding and matches any; slot-2 is bound to
	// another subject; slot-3 expired before the date.
	require.Len(t, available, 1)
	assert.Equal(t, "slot-1", available[0].SlotID)
}

func TestGetAvailableSchedulesForSubject(t *testing.T) {
	slots := &mockAvailabilitySlots{byDay: map[models.DayOfWeek][]models.TimeSlot{
		models.Monday: {
			{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00", MaxStudentsPerSlot: 3},
		},
	}}
	detail := &mockDetailReader{detail: &models.SubjectDetailInfo{
		SubjectDetail: models.SubjectDetail{ID: "detail-1", ProfessorID: "prof-1", Active: true},
	}}
	svc := NewAvailabilityService(slots, &mockBookingCounter{counts: map[string]int{}}, detail, nil, 0, 0, zap.NewNop())

	schedule, err := svc.GetAvailableSchedulesForSubject(context.Background(), "detail-1", mondayDate, mondayDate.AddDate(0, 0, 13))
	require.NoError(t, err)
	// Two Mondays fall inside the 14-day window.
	require.Len(t, schedule, 2)
	assert.Equal(t, "2026-01-05", schedule[0].Date)
	assert.Equal(t, "2026-01-12", schedule[1].Date)
	assert.Equal(t, models.Monday, schedule[0].DayOfWeek)
}

func TestGetAvailableSchedulesRangeValidation(t *testing.T) {
	svc := NewAvailabilityService(&mockAvailabilitySlots{}, &mockBookingCounter{}, &mockDetailReader{}, nil, 30, 0, zap.NewNop())

	_, err := svc.GetAvailableSchedulesForSubject(context.Background(), "detail-1", mondayDate, mondayDate.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.GetAvailableSchedulesForSubject(context.Background(), "detail-1", mondayDate, mondayDate.AddDate(0, 0, 45))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
