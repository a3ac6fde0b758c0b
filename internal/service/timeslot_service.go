package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type timeSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error)
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CountFutureDates(ctx context.Context, slotID string, from time.Time) (int, error)
}

// CreateTimeSlotRequest describes payload for publishing an availability slot.
type CreateTimeSlotRequest struct {
	SubjectDetailID     *string    `json:"subject_detail_id"`
	DayOfWeek           string     `json:"day_of_week" validate:"required"`
	StartTime           string     `json:"start_time" validate:"required"`
	EndTime             string     `json:"end_time" validate:"required"`
	MaxStudentsPerSlot  int        `json:"max_students_per_slot" validate:"required,min=1"`
	SlotDurationMinutes int        `json:"slot_duration_minutes" validate:"required,min=5"`
	IsRecurring         bool       `json:"is_recurring"`
	EffectiveFrom       *time.Time `json:"effective_from"`
	EffectiveUntil      *time.Time `json:"effective_until"`
	Notes               string     `json:"notes"`
}

// UpdateTimeSlotRequest modifies an existing slot.
type UpdateTimeSlotRequest struct {
	SubjectDetailID     *string    `json:"subject_detail_id"`
	DayOfWeek           string     `json:"day_of_week" validate:"required"`
	StartTime           string     `json:"start_time" validate:"required"`
	EndTime             string     `json:"end_time" validate:"required"`
	MaxStudentsPerSlot  int        `json:"max_students_per_slot" validate:"required,min=1"`
	SlotDurationMinutes int        `json:"slot_duration_minutes" validate:"required,min=5"`
	IsActive            bool       `json:"is_active"`
	IsRecurring         bool       `json:"is_recurring"`
	EffectiveFrom       *time.Time `json:"effective_from"`
	EffectiveUntil      *time.Time `json:"effective_until"`
	Notes               string     `json:"notes"`
}

// TimeSlotService manages professor availability windows and their
// overlap invariant.
type TimeSlotService struct {
	repo      timeSlotRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService instantiates TimeSlotService. cache may be nil.
func NewTimeSlotService(repo timeSlotRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns a slot by identifier.
func (s *TimeSlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return slot, nil
}

// List returns slots matching the filter.
func (s *TimeSlotService) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// Create publishes a new availability slot after overlap checking.
func (s *TimeSlotService) Create(ctx context.Context, professorID string, req CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	day := models.DayOfWeek(req.DayOfWeek)
	start, end, err := s.validateWindow(day, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoOverlap(ctx, professorID, day, start, end, ""); err != nil {
		return nil, err
	}

	slot := &models.TimeSlot{
		ProfessorID:         professorID,
		SubjectDetailID:     req.SubjectDetailID,
		DayOfWeek:           day,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		MaxStudentsPerSlot:  req.MaxStudentsPerSlot,
		SlotDurationMinutes: req.SlotDurationMinutes,
		IsActive:            true,
		IsRecurring:         req.IsRecurring,
		EffectiveFrom:       req.EffectiveFrom,
		EffectiveUntil:      req.EffectiveUntil,
		Notes:               req.Notes,
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	s.invalidateAvailability(ctx, professorID)
	return slot, nil
}

// Update modifies a slot the actor owns.
func (s *TimeSlotService) Update(ctx context.Context, id, actorID string, actorRole models.UserRole, req UpdateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnership(slot, actorID, actorRole); err != nil {
		return nil, err
	}

	day := models.DayOfWeek(req.DayOfWeek)
	start, end, err := s.validateWindow(day, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoOverlap(ctx, slot.ProfessorID, day, start, end, slot.ID); err != nil {
		return nil, err
	}

	slot.SubjectDetailID = req.SubjectDetailID
	slot.DayOfWeek = day
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.MaxStudentsPerSlot = req.MaxStudentsPerSlot
	slot.SlotDurationMinutes = req.SlotDurationMinutes
	slot.IsActive = req.IsActive
	slot.IsRecurring = req.IsRecurring
	slot.EffectiveFrom = req.EffectiveFrom
	slot.EffectiveUntil = req.EffectiveUntil
	slot.Notes = req.Notes

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time slot")
	}
	s.invalidateAvailability(ctx, slot.ProfessorID)
	return slot, nil
}

// Deactivate soft-removes a slot. Always permitted for the owner.
func (s *TimeSlotService) Deactivate(ctx context.Context, id, actorID string, actorRole models.UserRole) error {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureOwnership(slot, actorID, actorRole); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate time slot")
	}
	s.invalidateAvailability(ctx, slot.ProfessorID)
	return nil
}

// Delete removes a slot permanently. Blocked while upcoming sessions
// still reference it.
func (s *TimeSlotService) Delete(ctx context.Context, id, actorID string, actorRole models.UserRole) error {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureOwnership(slot, actorID, actorRole); err != nil {
		return err
	}

	count, err := s.repo.CountFutureDates(ctx, id, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "time slot has upcoming sessions; deactivate it instead")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	s.invalidateAvailability(ctx, slot.ProfessorID)
	return nil
}

func (s *TimeSlotService) ensureOwnership(slot *models.TimeSlot, actorID string, actorRole models.UserRole) error {
	if actorRole == models.RoleAdmin {
		return nil
	}
	if slot.ProfessorID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "time slot belongs to another professor")
	}
	return nil
}

func (s *TimeSlotService) validateWindow(day models.DayOfWeek, startTime, endTime string) (int, int, error) {
	if !day.Valid() {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day of week %q", day))
	}
	start, err := models.ClockMinutes(startTime)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := models.ClockMinutes(endTime)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if start >= end {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return start, end, nil
}

// ensureNoOverlap checks the half-open interval [start, end) against every
// active slot of the professor on the same weekday.
func (s *TimeSlotService) ensureNoOverlap(ctx context.Context, professorID string, day models.DayOfWeek, start, end int, ignoreID string) error {
	existing, err := s.repo.ListActiveByProfessorDay(ctx, professorID, day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot conflicts")
	}

	for _, item := range existing {
		if item.ID == ignoreID {
			continue
		}
		otherStart, err := models.ClockMinutes(item.StartTime)
		if err != nil {
			continue
		}
		otherEnd, err := models.ClockMinutes(item.EndTime)
		if err != nil {
			continue
		}
		if start < otherEnd && otherStart < end {
			domainErr := &models.TimeSlotConflictError{
				Message: fmt.Sprintf("overlaps existing slot from %s to %s", item.StartTime, item.EndTime),
				Conflict: models.TimeSlotConflict{
					SlotID:      item.ID,
					ProfessorID: item.ProfessorID,
					DayOfWeek:   item.DayOfWeek,
					StartTime:   item.StartTime,
					EndTime:     item.EndTime,
				},
			}
			return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("time slot conflict: %s", domainErr.Message))
		}
	}
	return nil
}

func (s *TimeSlotService) invalidateAvailability(ctx context.Context, professorID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "availability:"+professorID+":*"); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("professor_id", professorID), zap.Error(err))
	}
}
