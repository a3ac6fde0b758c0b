package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

const invitationColumns = `id, advisory_date_id, student_id, invited_by_id, status, expires_at, created_at, updated_at`

// InvitationRepository persists session invitations.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository constructs the repository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// FindByID returns an invitation by identifier.
func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*models.StudentInvitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_invitations WHERE id = $1 LIMIT 1`, invitationColumns)
	var invitation models.StudentInvitation
	if err := r.db.GetContext(ctx, &invitation, query, id); err != nil {
		return nil, err
	}
	return &invitation, nil
}

// FindPending returns a live PENDING invitation for a (session, student) pair.
func (r *InvitationRepository) FindPending(ctx context.Context, advisoryDateID, studentID string) (*models.StudentInvitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_invitations WHERE advisory_date_id = $1 AND student_id = $2 AND status = $3 LIMIT 1`, invitationColumns)
	var invitation models.StudentInvitation
	if err := r.db.GetContext(ctx, &invitation, query, advisoryDateID, studentID, models.InvitationPending); err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListByStudent returns a student's invitations, newest first.
func (r *InvitationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_invitations WHERE student_id = $1 ORDER BY created_at DESC`, invitationColumns)
	var invitations []models.StudentInvitation
	if err := r.db.SelectContext(ctx, &invitations, query, studentID); err != nil {
		return nil, fmt.Errorf("list student invitations: %w", err)
	}
	return invitations, nil
}

// ListBySession returns invitations for a dated session.
func (r *InvitationRepository) ListBySession(ctx context.Context, advisoryDateID string) ([]models.StudentInvitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_invitations WHERE advisory_date_id = $1 ORDER BY created_at DESC`, invitationColumns)
	var invitations []models.StudentInvitation
	if err := r.db.SelectContext(ctx, &invitations, query, advisoryDateID); err != nil {
		return nil, fmt.Errorf("list session invitations: %w", err)
	}
	return invitations, nil
}

// CountPendingByStudent counts live PENDING invitations for a student.
func (r *InvitationRepository) CountPendingByStudent(ctx context.Context, studentID string, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM student_invitations WHERE student_id = $1 AND status = $2 AND expires_at > $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.InvitationPending, now); err != nil {
		return 0, fmt.Errorf("count pending invitations: %w", err)
	}
	return count, nil
}

// Create inserts a new invitation.
func (r *InvitationRepository) Create(ctx context.Context, invitation *models.StudentInvitation) error {
	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = now
	}
	invitation.UpdatedAt = now

	const query = `INSERT INTO student_invitations (id, advisory_date_id, student_id, invited_by_id, status, expires_at, created_at, updated_at)
		VALUES (:id, :advisory_date_id, :student_id, :invited_by_id, :status, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invitation); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// UpdateStatus transitions an invitation.
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus) error {
	const query = `UPDATE student_invitations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	return nil
}
