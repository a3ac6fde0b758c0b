package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type availabilitySlotRepository interface {
	ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error)
}

type bookingCounter interface {
	CountBookings(ctx context.Context, timeSlotID string, date time.Time) (int, error)
}

type subjectDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SubjectDetailInfo, error)
}

// AvailabilityService materializes published slots into concrete per-date
// availability with remaining capacity.
type AvailabilityService struct {
	slots        availabilitySlotRepository
	bookings     bookingCounter
	subjects     subjectDetailReader
	cache        *CacheService
	maxRangeDays int
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService. cache may be nil.
func NewAvailabilityService(slots availabilitySlotRepository, bookings bookingCounter, subjects subjectDetailReader, cache *CacheService, maxRangeDays int, cacheTTL time.Duration, logger *zap.Logger) *AvailabilityService {
	if maxRangeDays <= 0 {
		maxRangeDays = 120
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		slots:        slots,
		bookings:     bookings,
		subjects:     subjects,
		cache:        cache,
		maxRangeDays: maxRangeDays,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// GetAvailableSlots returns a professor's slots on a concrete date with
// remaining spots. Fully booked slots are kept with zero spots.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, professorID, subjectDetailID string, date time.Time) ([]models.AvailableSlot, error) {
	cacheKey := fmt.Sprintf("availability:%s:%s:%s", professorID, subjectDetailID, date.Format("2006-01-02"))
	if s.cache.Enabled() {
		var cached []models.AvailableSlot
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	day := models.DayOfWeekFromTime(date)
	slots, err := s.slots.ListActiveByProfessorDay(ctx, professorID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	available := make([]models.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		if subjectDetailID != "" && slot.SubjectDetailID != nil && *slot.SubjectDetailID != subjectDetailID {
			continue
		}
		if !slot.CoversDate(date) {
			continue
		}

		booked, err := s.bookings.CountBookings(ctx, slot.ID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count slot bookings")
		}
		spots := slot.MaxStudentsPerSlot - booked
		if spots < 0 {
			spots = 0
		}
		available = append(available, models.AvailableSlot{
			SlotID:         slot.ID,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			AvailableSpots: spots,
			MaxStudents:    slot.MaxStudentsPerSlot,
		})
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, available, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return available, nil
}

// GetAvailableSchedulesForSubject walks an inclusive date range and returns
// the days on which the assigned professor has at least one slot.
func (s *AvailabilityService) GetAvailableSchedulesForSubject(ctx context.Context, subjectDetailID string, from, to time.Time) ([]models.DayAvailability, error) {
	from = from.Truncate(24 * time.Hour)
	to = to.Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.maxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds %d days", s.maxRangeDays))
	}

	detail, err := s.subjects.FindDetailByID(ctx, subjectDetailID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject detail not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}

	var schedule []models.DayAvailability
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		slots, err := s.GetAvailableSlots(ctx, detail.ProfessorID, subjectDetailID, date)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		schedule = append(schedule, models.DayAvailability{
			Date:      date.Format("2006-01-02"),
			DayOfWeek: models.DayOfWeekFromTime(date),
			Slots:     slots,
		})
	}
	return schedule, nil
}
