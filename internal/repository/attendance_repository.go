package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

// AttendanceRepository persists per-session attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records or overwrites the attendance mark for a student on a session.
func (r *AttendanceRepository) Upsert(ctx context.Context, attendance *models.AdvisoryAttendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attendance.CreatedAt.IsZero() {
		attendance.CreatedAt = now
	}
	attendance.UpdatedAt = now

	const query = `INSERT INTO advisory_attendances (id, student_id, advisory_date_id, attended, notes, created_at, updated_at)
		VALUES (:id, :student_id, :advisory_date_id, :attended, :notes, :created_at, :updated_at)
		ON CONFLICT (student_id, advisory_date_id) DO UPDATE
		SET attended = EXCLUDED.attended,
		    notes = EXCLUDED.notes,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// ListBySession returns attendance records for one dated session with
// student metadata, ordered by student name.
func (r *AttendanceRepository) ListBySession(ctx context.Context, advisoryDateID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.advisory_date_id, a.attended, a.notes, a.created_at, a.updated_at,
		u.full_name AS student_name, u.email AS student_email
		FROM advisory_attendances a
		JOIN users u ON u.id = a.student_id
		WHERE a.advisory_date_id = $1 ORDER BY u.full_name`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, advisoryDateID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return records, nil
}

// ListByAdvisory returns all attendance records across an advisory's dated
// sessions, ordered by session date then student name.
func (r *AttendanceRepository) ListByAdvisory(ctx context.Context, advisoryID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.advisory_date_id, a.attended, a.notes, a.created_at, a.updated_at,
		u.full_name AS student_name, u.email AS student_email, d.date AS session_date
		FROM advisory_attendances a
		JOIN users u ON u.id = a.student_id
		JOIN advisory_dates d ON d.id = a.advisory_date_id
		WHERE d.advisory_id = $1 ORDER BY d.date, u.full_name`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, advisoryID); err != nil {
		return nil, fmt.Errorf("list advisory attendance: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's attendance history, newest session first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AdvisoryAttendance, error) {
	const query = `SELECT a.id, a.student_id, a.advisory_date_id, a.attended, a.notes, a.created_at, a.updated_at
		FROM advisory_attendances a
		JOIN advisory_dates d ON d.id = a.advisory_date_id
		WHERE a.student_id = $1 ORDER BY d.date DESC`
	var records []models.AdvisoryAttendance
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}
