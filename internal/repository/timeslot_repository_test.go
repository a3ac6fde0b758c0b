package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

var timeSlotColumnList = []string{
	"id", "professor_id", "subject_detail_id", "day_of_week", "start_time", "end_time",
	"max_students_per_slot", "slot_duration_minutes", "is_active", "is_recurring",
	"effective_from", "effective_until", "notes", "created_at", "updated_at",
}

func TestTimeSlotListActiveByProfessorDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(timeSlotColumnList).
		AddRow("slot-1", "prof-1", nil, string(models.Monday), "09:00", "10:00", 3, 30, true, true, nil, nil, "", now, now).
		AddRow("slot-2", "prof-1", nil, string(models.Monday), "10:00", "11:00", 3, 30, true, true, nil, nil, "", now, now)
	mock.ExpectQuery("SELECT (.+) FROM time_slots WHERE professor_id = \\$1 AND day_of_week = \\$2 AND is_active = TRUE").
		WithArgs("prof-1", models.Monday).
		WillReturnRows(rows)

	slots, err := repo.ListActiveByProfessorDay(context.Background(), "prof-1", models.Monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec("INSERT INTO time_slots").WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TimeSlot{
		ProfessorID: "prof-1", DayOfWeek: models.Monday,
		StartTime: "09:00", EndTime: "10:00", MaxStudentsPerSlot: 3, IsActive: true,
	}
	err := repo.Create(context.Background(), slot)
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotListActiveOnlyFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(timeSlotColumnList).
		AddRow("slot-1", "prof-1", nil, string(models.Friday), "14:00", "16:00", 5, 30, true, true, nil, nil, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE 1=1 AND professor_id = $1 AND is_active = TRUE ORDER BY day_of_week, start_time")).
		WithArgs("prof-1").
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.TimeSlotFilter{ProfessorID: "prof-1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Friday, slots[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotCountFutureDates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	from := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM advisory_dates WHERE time_slot_id = $1 AND date >= $2")).
		WithArgs("slot-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountFutureDates(context.Background(), "slot-1", from)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec("UPDATE time_slots SET is_active = FALSE").
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "slot-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
