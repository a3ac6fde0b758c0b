package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

// AdvisoryRepository persists advisories with their schedules, dated
// sessions and participants.
type AdvisoryRepository struct {
	db *sqlx.DB
}

// NewAdvisoryRepository constructs the repository.
func NewAdvisoryRepository(db *sqlx.DB) *AdvisoryRepository {
	return &AdvisoryRepository{db: db}
}

// FindByID returns an advisory by identifier.
func (r *AdvisoryRepository) FindByID(ctx context.Context, id string) (*models.Advisory, error) {
	const query = `SELECT id, professor_id, subject_detail_id, max_students, notes, created_at, updated_at FROM advisories WHERE id = $1 LIMIT 1`
	var advisory models.Advisory
	if err := r.db.GetContext(ctx, &advisory, query, id); err != nil {
		return nil, err
	}
	return &advisory, nil
}

// List returns advisories matching the filter.
func (r *AdvisoryRepository) List(ctx context.Context, filter models.AdvisoryFilter) ([]models.Advisory, error) {
	query := `SELECT id, professor_id, subject_detail_id, max_students, notes, created_at, updated_at FROM advisories WHERE 1=1`
	var args []interface{}

	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		query += fmt.Sprintf(" AND professor_id = $%d", len(args))
	}
	if filter.SubjectDetailID != "" {
		args = append(args, filter.SubjectDetailID)
		query += fmt.Sprintf(" AND subject_detail_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var advisories []models.Advisory
	if err := r.db.SelectContext(ctx, &advisories, query, args...); err != nil {
		return nil, fmt.Errorf("list advisories: %w", err)
	}
	return advisories, nil
}

// Create inserts an advisory.
func (r *AdvisoryRepository) Create(ctx context.Context, advisory *models.Advisory) error {
	if advisory.ID == "" {
		advisory.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if advisory.CreatedAt.IsZero() {
		advisory.CreatedAt = now
	}
	advisory.UpdatedAt = now

	const query = `INSERT INTO advisories (id, professor_id, subject_detail_id, max_students, notes, created_at, updated_at)
		VALUES (:id, :professor_id, :subject_detail_id, :max_students, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, advisory); err != nil {
		return fmt.Errorf("create advisory: %w", err)
	}
	return nil
}

// CreateSchedule inserts a weekly schedule entry.
func (r *AdvisoryRepository) CreateSchedule(ctx context.Context, schedule *models.AdvisorySchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	const query = `INSERT INTO advisory_schedules (id, advisory_id, day_of_week, begin_time, end_time)
		VALUES (:id, :advisory_id, :day_of_week, :begin_time, :end_time)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create advisory schedule: %w", err)
	}
	return nil
}

// ListSchedules returns schedule entries for an advisory.
func (r *AdvisoryRepository) ListSchedules(ctx context.Context, advisoryID string) ([]models.AdvisorySchedule, error) {
	const query = `SELECT id, advisory_id, day_of_week, begin_time, end_time FROM advisory_schedules WHERE advisory_id = $1 ORDER BY day_of_week, begin_time`
	var schedules []models.AdvisorySchedule
	if err := r.db.SelectContext(ctx, &schedules, query, advisoryID); err != nil {
		return nil, fmt.Errorf("list advisory schedules: %w", err)
	}
	return schedules, nil
}

// CreateDate inserts a dated session.
func (r *AdvisoryRepository) CreateDate(ctx context.Context, date *models.AdvisoryDate) error {
	if date.ID == "" {
		date.ID = uuid.NewString()
	}
	if date.CreatedAt.IsZero() {
		date.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO advisory_dates (id, advisory_id, time_slot_id, topic, date, venue_id, created_at)
		VALUES (:id, :advisory_id, :time_slot_id, :topic, :date, :venue_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, date); err != nil {
		return fmt.Errorf("create advisory date: %w", err)
	}
	return nil
}

// FindDateByID returns a dated session by identifier.
func (r *AdvisoryRepository) FindDateByID(ctx context.Context, id string) (*models.AdvisoryDate, error) {
	const query = `SELECT id, advisory_id, time_slot_id, topic, date, venue_id, created_at FROM advisory_dates WHERE id = $1 LIMIT 1`
	var date models.AdvisoryDate
	if err := r.db.GetContext(ctx, &date, query, id); err != nil {
		return nil, err
	}
	return &date, nil
}

// ListDates returns dated sessions for an advisory.
func (r *AdvisoryRepository) ListDates(ctx context.Context, advisoryID string) ([]models.AdvisoryDate, error) {
	const query = `SELECT id, advisory_id, time_slot_id, topic, date, venue_id, created_at FROM advisory_dates WHERE advisory_id = $1 ORDER BY date`
	var dates []models.AdvisoryDate
	if err := r.db.SelectContext(ctx, &dates, query, advisoryID); err != nil {
		return nil, fmt.Errorf("list advisory dates: %w", err)
	}
	return dates, nil
}

// ListDatesByProfessorOn returns a professor's sessions on one calendar day.
func (r *AdvisoryRepository) ListDatesByProfessorOn(ctx context.Context, professorID string, day time.Time) ([]models.AdvisoryDate, error) {
	const query = `SELECT d.id, d.advisory_id, d.time_slot_id, d.topic, d.date, d.venue_id, d.created_at
		FROM advisory_dates d JOIN advisories a ON a.id = d.advisory_id
		WHERE a.professor_id = $1 AND d.date = $2 ORDER BY d.date`
	var dates []models.AdvisoryDate
	if err := r.db.SelectContext(ctx, &dates, query, professorID, day); err != nil {
		return nil, fmt.Errorf("list professor sessions: %w", err)
	}
	return dates, nil
}

// ListUpcomingDatesForStudent returns future sessions a student participates in.
func (r *AdvisoryRepository) ListUpcomingDatesForStudent(ctx context.Context, studentID string, from time.Time) ([]models.AdvisoryDate, error) {
	const query = `SELECT d.id, d.advisory_id, d.time_slot_id, d.topic, d.date, d.venue_id, d.created_at
		FROM advisory_dates d JOIN advisory_participants p ON p.advisory_date_id = d.id
		WHERE p.student_id = $1 AND d.date >= $2 ORDER BY d.date`
	var dates []models.AdvisoryDate
	if err := r.db.SelectContext(ctx, &dates, query, studentID, from); err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return dates, nil
}

// AddParticipant registers a student on a dated session.
func (r *AdvisoryRepository) AddParticipant(ctx context.Context, participant *models.AdvisoryParticipant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO advisory_participants (id, advisory_date_id, student_id, created_at)
		VALUES (:id, :advisory_date_id, :student_id, :created_at)
		ON CONFLICT (advisory_date_id, student_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, participant); err != nil {
		return fmt.Errorf("add advisory participant: %w", err)
	}
	return nil
}

// HasParticipant reports whether a student is registered on a session.
func (r *AdvisoryRepository) HasParticipant(ctx context.Context, advisoryDateID, studentID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM advisory_participants WHERE advisory_date_id = $1 AND student_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, advisoryDateID, studentID); err != nil {
		return false, fmt.Errorf("check advisory participant: %w", err)
	}
	return count > 0, nil
}

// CountParticipants counts registered students on a session.
func (r *AdvisoryRepository) CountParticipants(ctx context.Context, advisoryDateID string) (int, error) {
	const query = `SELECT COUNT(*) FROM advisory_participants WHERE advisory_date_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, advisoryDateID); err != nil {
		return 0, fmt.Errorf("count advisory participants: %w", err)
	}
	return count, nil
}

// CountBookings counts students booked through a time slot on a date:
// participants of every dated session that references the slot on that day.
func (r *AdvisoryRepository) CountBookings(ctx context.Context, timeSlotID string, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM advisory_participants p
		JOIN advisory_dates d ON d.id = p.advisory_date_id
		WHERE d.time_slot_id = $1 AND d.date = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, timeSlotID, date); err != nil {
		return 0, fmt.Errorf("count slot bookings: %w", err)
	}
	return count, nil
}
