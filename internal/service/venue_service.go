package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type venueRepository interface {
	List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, int, error)
	FindByID(ctx context.Context, id string) (*models.Venue, error)
	Create(ctx context.Context, venue *models.Venue) error
	Update(ctx context.Context, venue *models.Venue) error
	Delete(ctx context.Context, id string) error
}

// CreateVenueRequest captures fields for creating venues.
type CreateVenueRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

// UpdateVenueRequest modifies venue fields.
type UpdateVenueRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Active   bool   `json:"active"`
}

// VenueService handles venue workflows.
type VenueService struct {
	repo      venueRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVenueService creates a new venue service.
func NewVenueService(repo venueRepository, validate *validator.Validate, logger *zap.Logger) *VenueService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VenueService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated venues.
func (s *VenueService) List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, *models.Pagination, error) {
	venues, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list venues")
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
	return venues, pagination, nil
}

// Get returns venue by identifier.
func (s *VenueService) Get(ctx context.Context, id string) (*models.Venue, error) {
	venue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "venue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue")
	}
	return venue, nil
}

// Create adds a new venue.
func (s *VenueService) Create(ctx context.Context, req CreateVenueRequest) (*models.Venue, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid venue payload")
	}

	venue := &models.Venue{
		Name:     req.Name,
		Location: req.Location,
		Capacity: req.Capacity,
		Active:   true,
	}
	if err := s.repo.Create(ctx, venue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create venue")
	}
	return venue, nil
}

// Update modifies an existing venue.
func (s *VenueService) Update(ctx context.Context, id string, req UpdateVenueRequest) (*models.Venue, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid venue payload")
	}

	venue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	venue.Name = req.Name
	venue.Location = req.Location
	venue.Capacity = req.Capacity
	venue.Active = req.Active

	if err := s.repo.Update(ctx, venue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update venue")
	}
	return venue, nil
}

// Delete marks a venue inactive.
func (s *VenueService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete venue")
	}
	return nil
}
