package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

const advisoryRequestColumns = `id, student_id, professor_id, subject_detail_id, status, student_message, professor_response, processed_at, processed_by_id, created_at, updated_at`

// AdvisoryRequestRepository persists advisory request workflow rows.
type AdvisoryRequestRepository struct {
	db *sqlx.DB
}

// NewAdvisoryRequestRepository constructs the repository.
func NewAdvisoryRequestRepository(db *sqlx.DB) *AdvisoryRequestRepository {
	return &AdvisoryRequestRepository{db: db}
}

// FindByID returns a request by identifier.
func (r *AdvisoryRequestRepository) FindByID(ctx context.Context, id string) (*models.AdvisoryRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM advisory_requests WHERE id = $1 LIMIT 1`, advisoryRequestColumns)
	var req models.AdvisoryRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// CountPending counts PENDING requests for a (student, subject detail) pair.
func (r *AdvisoryRequestRepository) CountPending(ctx context.Context, studentID, subjectDetailID string) (int, error) {
	const query = `SELECT COUNT(*) FROM advisory_requests WHERE student_id = $1 AND subject_detail_id = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, subjectDetailID, models.RequestPending); err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}

// List returns requests matching the filter ordered most recent first.
func (r *AdvisoryRequestRepository) List(ctx context.Context, filter models.AdvisoryRequestFilter) ([]models.AdvisoryRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM advisory_requests WHERE 1=1`, advisoryRequestColumns)
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		query += fmt.Sprintf(" AND professor_id = $%d", len(args))
	}
	if filter.SubjectDetailID != "" {
		args = append(args, filter.SubjectDetailID)
		query += fmt.Sprintf(" AND subject_detail_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
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

	var requests []models.AdvisoryRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list advisory requests: %w", err)
	}
	return requests, nil
}

// Count counts requests matching the filter.
func (r *AdvisoryRequestRepository) Count(ctx context.Context, filter models.AdvisoryRequestFilter) (int, error) {
	query := `SELECT COUNT(*) FROM advisory_requests WHERE 1=1`
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		query += fmt.Sprintf(" AND professor_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count advisory requests: %w", err)
	}
	return count, nil
}

// CountByStatus counts requests in the given status across all users.
func (r *AdvisoryRequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM advisory_requests WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count requests by status: %w", err)
	}
	return count, nil
}

// Create inserts a new PENDING request. The partial unique index on
// (student_id, subject_detail_id) WHERE status = 'PENDING' backs the
// application-level duplicate check against concurrent writers.
func (r *AdvisoryRequestRepository) Create(ctx context.Context, req *models.AdvisoryRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO advisory_requests (id, student_id, professor_id, subject_detail_id, status, student_message, professor_response, processed_at, processed_by_id, created_at, updated_at)
		VALUES (:id, :student_id, :professor_id, :subject_detail_id, :status, :student_message, :professor_response, :processed_at, :processed_by_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create advisory request: %w", err)
	}
	return nil
}

// UpdateStatus transitions a request, stamping processing metadata.
func (r *AdvisoryRequestRepository) UpdateStatus(ctx context.Context, req *models.AdvisoryRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE advisory_requests SET status = :status, professor_response = :professor_response, processed_at = :processed_at, processed_by_id = :processed_by_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("update advisory request status: %w", err)
	}
	return nil
}
