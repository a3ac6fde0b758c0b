package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type invitationRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentInvitation, error)
	FindPending(ctx context.Context, advisoryDateID, studentID string) (*models.StudentInvitation, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error)
	ListBySession(ctx context.Context, advisoryDateID string) ([]models.StudentInvitation, error)
	Create(ctx context.Context, invitation *models.StudentInvitation) error
	UpdateStatus(ctx context.Context, id string, status models.InvitationStatus) error
}

type participantRegistrar interface {
	FindDateByID(ctx context.Context, id string) (*models.AdvisoryDate, error)
	FindByID(ctx context.Context, id string) (*models.Advisory, error)
	HasParticipant(ctx context.Context, advisoryDateID, studentID string) (bool, error)
}

// InviteRequest asks a specific student to join a dated session.
type InviteRequest struct {
	AdvisoryDateID string        `json:"advisory_date_id" validate:"required"`
	StudentID      string        `json:"student_id" validate:"required"`
	TTL            time.Duration `json:"-"`
}

// InvitationService manages professor-initiated session invitations with
// lazy expiry.
type InvitationService struct {
	repo       invitationRepository
	advisories participantRegistrar
	enrol      *AdvisoryService
	notifier   notificationSender
	defaultTTL time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewInvitationService instantiates InvitationService. notifier may be nil.
func NewInvitationService(repo invitationRepository, advisories participantRegistrar, enrol *AdvisoryService, notifier notificationSender, defaultTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *InvitationService {
	if defaultTTL <= 0 {
		defaultTTL = 72 * time.Hour
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationService{
		repo:       repo,
		advisories: advisories,
		enrol:      enrol,
		notifier:   notifier,
		defaultTTL: defaultTTL,
		validator:  validate,
		logger:     logger,
	}
}

// Invite asks a student to join a dated session owned by the professor.
func (s *InvitationService) Invite(ctx context.Context, invitedByID string, req InviteRequest) (*models.StudentInvitation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invitation payload")
	}

	date, err := s.advisories.FindDateByID(ctx, req.AdvisoryDateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	advisory, err := s.advisories.FindByID(ctx, date.AdvisoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory")
	}
	if advisory.ProfessorID != invitedByID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another professor")
	}

	registered, err := s.advisories.HasParticipant(ctx, req.AdvisoryDateID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check participant")
	}
	if registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered on this session")
	}

	if existing, err := s.repo.FindPending(ctx, req.AdvisoryDateID, req.StudentID); err == nil {
		if !existing.Expired(time.Now().UTC()) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending invitation already exists")
		}
		if err := s.repo.UpdateStatus(ctx, existing.ID, models.InvitationExpired); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire invitation")
		}
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check invitations")
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	invitation := &models.StudentInvitation{
		AdvisoryDateID: req.AdvisoryDateID,
		StudentID:      req.StudentID,
		InvitedByID:    invitedByID,
		Status:         models.InvitationPending,
		ExpiresAt:      time.Now().UTC().Add(ttl),
	}
	if err := s.repo.Create(ctx, invitation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invitation")
	}

	if s.notifier != nil {
		vars := map[string]string{
			"date":       date.Date.Format("2006-01-02"),
			"topic":      date.Topic,
			"expires_at": invitation.ExpiresAt.Format(time.RFC3339),
		}
		if err := s.notifier.Send(ctx, req.StudentID, models.EventSessionInvited, vars); err != nil {
			s.logger.Warn("invitation notification failed", zap.String("student_id", req.StudentID), zap.Error(err))
		}
	}
	return invitation, nil
}

// Respond accepts or declines an invitation. Accepting registers the
// student as a session participant.
func (s *InvitationService) Respond(ctx context.Context, invitationID, studentID string, accept bool) (*models.StudentInvitation, error) {
	invitation, err := s.repo.FindByID(ctx, invitationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invitation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitation")
	}
	if invitation.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invitation belongs to another student")
	}
	if invitation.Status != models.InvitationPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "invitation has already been answered")
	}
	if invitation.Expired(time.Now().UTC()) {
		if err := s.repo.UpdateStatus(ctx, invitation.ID, models.InvitationExpired); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire invitation")
		}
		invitation.Status = models.InvitationExpired
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "invitation has expired")
	}

	status := models.InvitationDeclined
	if accept {
		if _, err := s.enrol.AddParticipant(ctx, invitation.AdvisoryDateID, studentID); err != nil {
			return nil, err
		}
		status = models.InvitationAccepted
	}
	if err := s.repo.UpdateStatus(ctx, invitation.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update invitation")
	}
	invitation.Status = status
	return invitation, nil
}

// ListForStudent returns a student's invitations, lazily expiring stale
// PENDING rows as it reads them.
func (s *InvitationService) ListForStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error) {
	invitations, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}

	now := time.Now().UTC()
	for i := range invitations {
		if invitations[i].Status != models.InvitationPending || !invitations[i].Expired(now) {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, invitations[i].ID, models.InvitationExpired); err != nil {
			s.logger.Warn("lazy expiry failed", zap.String("invitation_id", invitations[i].ID), zap.Error(err))
			continue
		}
		invitations[i].Status = models.InvitationExpired
	}
	return invitations, nil
}

// ListForSession returns invitations on a session owned by the professor.
func (s *InvitationService) ListForSession(ctx context.Context, advisoryDateID, professorID string) ([]models.StudentInvitation, error) {
	date, err := s.advisories.FindDateByID(ctx, advisoryDateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	advisory, err := s.advisories.FindByID(ctx, date.AdvisoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory")
	}
	if advisory.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another professor")
	}

	invitations, err := s.repo.ListBySession(ctx, advisoryDateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}
	return invitations, nil
}
