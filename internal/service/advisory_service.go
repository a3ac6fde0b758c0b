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

type advisoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Advisory, error)
	List(ctx context.Context, filter models.AdvisoryFilter) ([]models.Advisory, error)
	Create(ctx context.Context, advisory *models.Advisory) error
	CreateSchedule(ctx context.Context, schedule *models.AdvisorySchedule) error
	ListSchedules(ctx context.Context, advisoryID string) ([]models.AdvisorySchedule, error)
	CreateDate(ctx context.Context, date *models.AdvisoryDate) error
	FindDateByID(ctx context.Context, id string) (*models.AdvisoryDate, error)
	ListDates(ctx context.Context, advisoryID string) ([]models.AdvisoryDate, error)
	ListUpcomingDatesForStudent(ctx context.Context, studentID string, from time.Time) ([]models.AdvisoryDate, error)
	AddParticipant(ctx context.Context, participant *models.AdvisoryParticipant) error
	HasParticipant(ctx context.Context, advisoryDateID, studentID string) (bool, error)
	CountParticipants(ctx context.Context, advisoryDateID string) (int, error)
}

type venueReader interface {
	FindByID(ctx context.Context, id string) (*models.Venue, error)
}

type slotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id string) (*models.AdvisoryRequest, error)
}

// CreateAdvisoryRequest describes payload for opening an advisory.
type CreateAdvisoryRequest struct {
	SubjectDetailID string `json:"subject_detail_id" validate:"required"`
	MaxStudents     int    `json:"max_students" validate:"required,min=1"`
	Notes           string `json:"notes"`
}

// AddScheduleRequest adds a weekly recurring entry.
type AddScheduleRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	BeginTime string `json:"begin_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// AddDateRequest adds a concrete dated session.
type AddDateRequest struct {
	TimeSlotID *string   `json:"time_slot_id"`
	Topic      string    `json:"topic" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	VenueID    string    `json:"venue_id" validate:"required"`
}

// AdvisoryService manages advisories, their schedules, dated sessions
// and participant registration.
type AdvisoryService struct {
	repo      advisoryRepository
	subjects  subjectDetailReader
	venues    venueReader
	slots     slotReader
	requests  requestReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdvisoryService instantiates AdvisoryService.
func NewAdvisoryService(repo advisoryRepository, subjects subjectDetailReader, venues venueReader, slots slotReader, requests requestReader, validate *validator.Validate, logger *zap.Logger) *AdvisoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryService{repo: repo, subjects: subjects, venues: venues, slots: slots, requests: requests, validator: validate, logger: logger}
}

// Get returns an advisory with its schedules and dated sessions.
func (s *AdvisoryService) Get(ctx context.Context, id string) (*models.AdvisoryDetail, error) {
	advisory, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	schedules, err := s.repo.ListSchedules(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory schedules")
	}
	dates, err := s.repo.ListDates(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory dates")
	}
	return &models.AdvisoryDetail{Advisory: *advisory, Schedules: schedules, Dates: dates}, nil
}

// List returns advisories matching the filter.
func (s *AdvisoryService) List(ctx context.Context, filter models.AdvisoryFilter) ([]models.Advisory, error) {
	advisories, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list advisories")
	}
	return advisories, nil
}

// Create opens an advisory for one of the professor's subject assignments.
func (s *AdvisoryService) Create(ctx context.Context, professorID string, req CreateAdvisoryRequest) (*models.Advisory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advisory payload")
	}

	detail, err := s.subjects.FindDetailByID(ctx, req.SubjectDetailID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject detail not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}
	if detail.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject detail is assigned to another professor")
	}

	advisory := &models.Advisory{
		ProfessorID:     professorID,
		SubjectDetailID: req.SubjectDetailID,
		MaxStudents:     req.MaxStudents,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, advisory); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advisory")
	}
	return advisory, nil
}

// CreateFromRequest opens an advisory for an approved request and registers
// nothing yet; sessions and participants are added afterwards.
func (s *AdvisoryService) CreateFromRequest(ctx context.Context, requestID, professorID string, maxStudents int, notes string) (*models.Advisory, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "advisory request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory request")
	}
	if request.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another professor")
	}
	if request.Status != models.RequestApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not approved")
	}

	return s.Create(ctx, professorID, CreateAdvisoryRequest{
		SubjectDetailID: request.SubjectDetailID,
		MaxStudents:     maxStudents,
		Notes:           notes,
	})
}

// AddSchedule attaches a recurring weekly entry to an advisory.
func (s *AdvisoryService) AddSchedule(ctx context.Context, advisoryID, professorID string, req AddScheduleRequest) (*models.AdvisorySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	advisory, err := s.loadOwned(ctx, advisoryID, professorID)
	if err != nil {
		return nil, err
	}

	day := models.DayOfWeek(req.DayOfWeek)
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	begin, err := models.ClockMinutes(req.BeginTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid begin time")
	}
	end, err := models.ClockMinutes(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if begin >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "begin time must be before end time")
	}

	schedule := &models.AdvisorySchedule{
		AdvisoryID: advisory.ID,
		DayOfWeek:  day,
		BeginTime:  req.BeginTime,
		EndTime:    req.EndTime,
	}
	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advisory schedule")
	}
	return schedule, nil
}

// AddDate attaches a concrete dated session at a venue, optionally consuming
// a published availability slot.
func (s *AdvisoryService) AddDate(ctx context.Context, advisoryID, professorID string, req AddDateRequest) (*models.AdvisoryDate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	advisory, err := s.loadOwned(ctx, advisoryID, professorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.venues.FindByID(ctx, req.VenueID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "venue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue")
	}

	if req.TimeSlotID != nil {
		slot, err := s.slots.FindByID(ctx, *req.TimeSlotID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
		}
		if slot.ProfessorID != professorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "time slot belongs to another professor")
		}
	}

	date := &models.AdvisoryDate{
		AdvisoryID: advisory.ID,
		TimeSlotID: req.TimeSlotID,
		Topic:      req.Topic,
		Date:       req.Date.Truncate(24 * time.Hour),
		VenueID:    req.VenueID,
	}
	if err := s.repo.CreateDate(ctx, date); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advisory date")
	}
	return date, nil
}

// AddParticipant registers a student on a dated session, respecting the
// advisory's capacity.
func (s *AdvisoryService) AddParticipant(ctx context.Context, advisoryDateID, studentID string) (*models.AdvisoryParticipant, error) {
	date, err := s.repo.FindDateByID(ctx, advisoryDateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	advisory, err := s.load(ctx, date.AdvisoryID)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.HasParticipant(ctx, advisoryDateID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check participant")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered on this session")
	}

	count, err := s.repo.CountParticipants(ctx, advisoryDateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count participants")
	}
	if advisory.MaxStudents > 0 && count >= advisory.MaxStudents {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is full")
	}

	participant := &models.AdvisoryParticipant{
		AdvisoryDateID: advisoryDateID,
		StudentID:      studentID,
	}
	if err := s.repo.AddParticipant(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add participant")
	}
	return participant, nil
}

// ListUpcomingForStudent returns future sessions a student is registered on.
func (s *AdvisoryService) ListUpcomingForStudent(ctx context.Context, studentID string) ([]models.AdvisoryDate, error) {
	dates, err := s.repo.ListUpcomingDatesForStudent(ctx, studentID, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming sessions")
	}
	return dates, nil
}

func (s *AdvisoryService) load(ctx context.Context, id string) (*models.Advisory, error) {
	advisory, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "advisory not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory")
	}
	return advisory, nil
}

func (s *AdvisoryService) loadOwned(ctx context.Context, id, professorID string) (*models.Advisory, error) {
	advisory, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if advisory.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "advisory belongs to another professor")
	}
	return advisory, nil
}
