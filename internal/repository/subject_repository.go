package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

// SubjectRepository persists subjects and professor assignments.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, code, name, description, active, created_at, updated_at FROM subjects WHERE id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// List returns subjects based on filters with total count.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	baseQuery := `FROM subjects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"code": true, "name": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "code"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, code, name, description, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, code, name, description, active, created_at, updated_at) VALUES (:id, :code, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update updates mutable fields of a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET code = :code, name = :name, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete soft-deletes a subject by marking it inactive.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE subjects SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// FindDetailByID returns a professor assignment with display metadata.
func (r *SubjectRepository) FindDetailByID(ctx context.Context, id string) (*models.SubjectDetailInfo, error) {
	const query = `SELECT d.id, d.subject_id, d.professor_id, d.term, d.active, d.created_at,
		s.code AS subject_code, s.name AS subject_name, u.full_name AS professor_name
		FROM subject_details d
		JOIN subjects s ON s.id = d.subject_id
		JOIN users u ON u.id = d.professor_id
		WHERE d.id = $1 LIMIT 1`
	var detail models.SubjectDetailInfo
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListDetails returns assignments for a subject.
func (r *SubjectRepository) ListDetails(ctx context.Context, subjectID string) ([]models.SubjectDetailInfo, error) {
	const query = `SELECT d.id, d.subject_id, d.professor_id, d.term, d.active, d.created_at,
		s.code AS subject_code, s.name AS subject_name, u.full_name AS professor_name
		FROM subject_details d
		JOIN subjects s ON s.id = d.subject_id
		JOIN users u ON u.id = d.professor_id
		WHERE d.subject_id = $1 ORDER BY d.created_at`
	var details []models.SubjectDetailInfo
	if err := r.db.SelectContext(ctx, &details, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject details: %w", err)
	}
	return details, nil
}

// CreateDetail inserts a professor assignment.
func (r *SubjectRepository) CreateDetail(ctx context.Context, detail *models.SubjectDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.NewString()
	}
	if detail.CreatedAt.IsZero() {
		detail.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subject_details (id, subject_id, professor_id, term, active, created_at) VALUES (:id, :subject_id, :professor_id, :term, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, detail); err != nil {
		return fmt.Errorf("create subject detail: %w", err)
	}
	return nil
}

// DeleteDetail removes a professor assignment.
func (r *SubjectRepository) DeleteDetail(ctx context.Context, id string) error {
	const query = `DELETE FROM subject_details WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete subject detail: %w", err)
	}
	return nil
}
