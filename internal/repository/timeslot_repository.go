package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

const timeSlotColumns = `id, professor_id, subject_detail_id, day_of_week, start_time, end_time, max_students_per_slot, slot_duration_minutes, is_active, is_recurring, effective_from, effective_until, notes, created_at, updated_at`

// TimeSlotRepository persists professor availability windows.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// FindByID returns a slot by identifier.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE id = $1 LIMIT 1`, timeSlotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListActiveByProfessorDay returns active slots for a professor on a weekday,
// the working set for overlap checks.
func (r *TimeSlotRepository) ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE professor_id = $1 AND day_of_week = $2 AND is_active = TRUE ORDER BY start_time`, timeSlotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, professorID, day); err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	return slots, nil
}

// List returns slots matching the filter.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE 1=1`, timeSlotColumns)
	var args []interface{}

	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		query += fmt.Sprintf(" AND professor_id = $%d", len(args))
	}
	if filter.SubjectDetailID != "" {
		args = append(args, filter.SubjectDetailID)
		query += fmt.Sprintf(" AND (subject_detail_id = $%d OR subject_detail_id IS NULL)", len(args))
	}
	if filter.DayOfWeek != "" {
		args = append(args, filter.DayOfWeek)
		query += fmt.Sprintf(" AND day_of_week = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY day_of_week, start_time"

	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// Create inserts a new slot.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO time_slots (id, professor_id, subject_detail_id, day_of_week, start_time, end_time, max_students_per_slot, slot_duration_minutes, is_active, is_recurring, effective_from, effective_until, notes, created_at, updated_at)
		VALUES (:id, :professor_id, :subject_detail_id, :day_of_week, :start_time, :end_time, :max_students_per_slot, :slot_duration_minutes, :is_active, :is_recurring, :effective_from, :effective_until, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// Update rewrites mutable slot fields.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_slots SET subject_detail_id = :subject_detail_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, max_students_per_slot = :max_students_per_slot, slot_duration_minutes = :slot_duration_minutes, is_active = :is_active, is_recurring = :is_recurring, effective_from = :effective_from, effective_until = :effective_until, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	return nil
}

// Deactivate soft-removes the slot, preserving history.
func (r *TimeSlotRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE time_slots SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate time slot: %w", err)
	}
	return nil
}

// Delete removes the slot permanently.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM time_slots WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	return nil
}

// CountFutureDates counts upcoming advisory dates still referencing a slot.
func (r *TimeSlotRepository) CountFutureDates(ctx context.Context, slotID string, from time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM advisory_dates WHERE time_slot_id = $1 AND date >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, slotID, from); err != nil {
		return 0, fmt.Errorf("count future dates for slot: %w", err)
	}
	return count, nil
}
