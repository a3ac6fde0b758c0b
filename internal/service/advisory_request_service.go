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

type advisoryRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.AdvisoryRequest, error)
	CountPending(ctx context.Context, studentID, subjectDetailID string) (int, error)
	List(ctx context.Context, filter models.AdvisoryRequestFilter) ([]models.AdvisoryRequest, error)
	Create(ctx context.Context, req *models.AdvisoryRequest) error
	UpdateStatus(ctx context.Context, req *models.AdvisoryRequest) error
}

type notificationSender interface {
	Send(ctx context.Context, recipientID string, event models.NotificationEvent, vars map[string]string) error
}

// CreateAdvisoryRequestRequest is a student's ask for tutoring.
type CreateAdvisoryRequestRequest struct {
	SubjectDetailID string `json:"subject_detail_id" validate:"required"`
	Message         string `json:"message" validate:"max=2000"`
}

// AdvisoryRequestService drives the request workflow state machine.
type AdvisoryRequestService struct {
	repo      advisoryRequestRepository
	subjects  subjectDetailReader
	notifier  notificationSender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdvisoryRequestService instantiates AdvisoryRequestService. notifier
// may be nil, in which case no notifications are dispatched.
func NewAdvisoryRequestService(repo advisoryRequestRepository, subjects subjectDetailReader, notifier notificationSender, validate *validator.Validate, logger *zap.Logger) *AdvisoryRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryRequestService{repo: repo, subjects: subjects, notifier: notifier, validator: validate, logger: logger}
}

// Get returns a request visible to the actor.
func (s *AdvisoryRequestService) Get(ctx context.Context, id, actorID string, actorRole models.UserRole) (*models.AdvisoryRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && req.StudentID != actorID && req.ProfessorID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another user")
	}
	return req, nil
}

// List returns requests matching the filter.
func (s *AdvisoryRequestService) List(ctx context.Context, filter models.AdvisoryRequestFilter) ([]models.AdvisoryRequest, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list advisory requests")
	}
	return requests, nil
}

// ListMine returns a student's own requests.
func (s *AdvisoryRequestService) ListMine(ctx context.Context, studentID string, status *models.RequestStatus, page, pageSize int) ([]models.AdvisoryRequest, error) {
	return s.List(ctx, models.AdvisoryRequestFilter{StudentID: studentID, Status: status, Page: page, PageSize: pageSize})
}

// ListPending returns the open queue for a professor.
func (s *AdvisoryRequestService) ListPending(ctx context.Context, professorID string, page, pageSize int) ([]models.AdvisoryRequest, error) {
	status := models.RequestPending
	return s.List(ctx, models.AdvisoryRequestFilter{ProfessorID: professorID, Status: &status, Page: page, PageSize: pageSize})
}

// Create opens a PENDING request against a subject detail. At most one
// PENDING request may exist per (student, subject detail) pair.
func (s *AdvisoryRequestService) Create(ctx context.Context, studentID string, req CreateAdvisoryRequestRequest) (*models.AdvisoryRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	detail, err := s.subjects.FindDetailByID(ctx, req.SubjectDetailID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject detail not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}
	if !detail.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject detail not found")
	}

	pending, err := s.repo.CountPending(ctx, studentID, req.SubjectDetailID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists for this subject")
	}

	request := &models.AdvisoryRequest{
		StudentID:       studentID,
		ProfessorID:     detail.ProfessorID,
		SubjectDetailID: req.SubjectDetailID,
		Status:          models.RequestPending,
		StudentMessage:  req.Message,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advisory request")
	}

	s.notify(ctx, detail.ProfessorID, models.EventRequestCreated, map[string]string{
		"subject": detail.SubjectName,
		"message": req.Message,
	})
	return request, nil
}

// Approve transitions a PENDING request to APPROVED.
func (s *AdvisoryRequestService) Approve(ctx context.Context, requestID, professorID, response string) (*models.AdvisoryRequest, error) {
	return s.process(ctx, requestID, professorID, models.RequestApproved, response)
}

// Reject transitions a PENDING request to REJECTED. A reason is required.
func (s *AdvisoryRequestService) Reject(ctx context.Context, requestID, professorID, response string) (*models.AdvisoryRequest, error) {
	if response == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	return s.process(ctx, requestID, professorID, models.RequestRejected, response)
}

// Cancel withdraws a PENDING or APPROVED request. Either party may cancel;
// the opposite party is notified.
func (s *AdvisoryRequestService) Cancel(ctx context.Context, requestID, actorID string) (*models.AdvisoryRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != req.StudentID && actorID != req.ProfessorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another user")
	}
	if !req.Status.CanTransitionTo(models.RequestCancelled) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request can no longer be cancelled")
	}

	now := time.Now().UTC()
	req.Status = models.RequestCancelled
	req.ProcessedAt = &now
	req.ProcessedByID = &actorID
	if err := s.repo.UpdateStatus(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel advisory request")
	}

	recipient := req.ProfessorID
	if actorID == req.ProfessorID {
		recipient = req.StudentID
	}
	s.notify(ctx, recipient, models.EventRequestCancelled, nil)
	return req, nil
}

func (s *AdvisoryRequestService) process(ctx context.Context, requestID, professorID string, target models.RequestStatus, response string) (*models.AdvisoryRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another professor")
	}
	if req.Status != models.RequestPending || !req.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
	}

	now := time.Now().UTC()
	req.Status = target
	req.ProfessorResponse = response
	req.ProcessedAt = &now
	req.ProcessedByID = &professorID
	if err := s.repo.UpdateStatus(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update advisory request")
	}

	event := models.EventRequestApproved
	if target == models.RequestRejected {
		event = models.EventRequestRejected
	}
	s.notify(ctx, req.StudentID, event, map[string]string{"response": response})
	return req, nil
}

func (s *AdvisoryRequestService) load(ctx context.Context, id string) (*models.AdvisoryRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "advisory request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory request")
	}
	return req, nil
}

// notify dispatches best-effort. Delivery failures never fail the workflow.
func (s *AdvisoryRequestService) notify(ctx context.Context, recipientID string, event models.NotificationEvent, vars map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, recipientID, event, vars); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("recipient_id", recipientID),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}
