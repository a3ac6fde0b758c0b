package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
	FindDetailByID(ctx context.Context, id string) (*models.SubjectDetailInfo, error)
	ListDetails(ctx context.Context, subjectID string) ([]models.SubjectDetailInfo, error)
	CreateDetail(ctx context.Context, detail *models.SubjectDetail) error
	DeleteDetail(ctx context.Context, id string) error
}

type professorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateSubjectRequest captures fields for creating subjects.
type CreateSubjectRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateSubjectRequest modifies subject fields.
type UpdateSubjectRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// AssignProfessorRequest creates a subject detail binding a professor to a
// subject for a term.
type AssignProfessorRequest struct {
	ProfessorID string `json:"professor_id" validate:"required"`
	Term        string `json:"term" validate:"required"`
}

// SubjectService handles subject and assignment workflows.
type SubjectService struct {
	repo      subjectRepository
	users     professorReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, users professorReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns paginated subjects.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return subjects, pagination, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a new subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	subject.Name = req.Name
	subject.Description = req.Description
	subject.Active = req.Active

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete marks a subject inactive.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// ListDetails returns professor assignments for a subject.
func (s *SubjectService) ListDetails(ctx context.Context, subjectID string) ([]models.SubjectDetailInfo, error) {
	if _, err := s.Get(ctx, subjectID); err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetails(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject details")
	}
	return details, nil
}

// AssignProfessor binds a professor to a subject for a term.
func (s *SubjectService) AssignProfessor(ctx context.Context, subjectID string, req AssignProfessorRequest) (*models.SubjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.Get(ctx, subjectID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.ProfessorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if user.Role != models.RoleProfessor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a professor")
	}

	detail := &models.SubjectDetail{
		SubjectID:   subjectID,
		ProfessorID: req.ProfessorID,
		Term:        req.Term,
		Active:      true,
	}
	if err := s.repo.CreateDetail(ctx, detail); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject detail")
	}
	return detail, nil
}

// RemoveDetail deletes a professor assignment.
func (s *SubjectService) RemoveDetail(ctx context.Context, detailID string) error {
	if _, err := s.repo.FindDetailByID(ctx, detailID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject detail not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}
	if err := s.repo.DeleteDetail(ctx, detailID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject detail")
	}
	return nil
}
