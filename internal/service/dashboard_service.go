package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/dto"
	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
)

type dashboardRequestLister interface {
	List(ctx context.Context, filter models.AdvisoryRequestFilter) ([]models.AdvisoryRequest, error)
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
}

type dashboardSessionLister interface {
	ListDatesByProfessorOn(ctx context.Context, professorID string, day time.Time) ([]models.AdvisoryDate, error)
	ListUpcomingDatesForStudent(ctx context.Context, studentID string, from time.Time) ([]models.AdvisoryDate, error)
}

type dashboardSlotLister interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
}

type dashboardInvitationLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentInvitation, error)
}

type dashboardUserLister interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// DashboardService assembles per-role landing summaries.
type DashboardService struct {
	requests    dashboardRequestLister
	sessions    dashboardSessionLister
	slots       dashboardSlotLister
	invitations dashboardInvitationLister
	users       dashboardUserLister
	metrics     *MetricsService
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService instantiates DashboardService. metrics and cache may
// be nil.
func NewDashboardService(requests dashboardRequestLister, sessions dashboardSessionLister, slots dashboardSlotLister, invitations dashboardInvitationLister, users dashboardUserLister, metrics *MetricsService, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		requests:    requests,
		sessions:    sessions,
		slots:       slots,
		invitations: invitations,
		users:       users,
		metrics:     metrics,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Get returns the dashboard variant for the authenticated identity. The
// second return reports whether the summary was served from cache.
func (s *DashboardService) Get(ctx context.Context, userID string, role models.UserRole) (*dto.DashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:%s:%s", role, userID)
	if s.cache.Enabled() {
		var cached dto.DashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	var (
		resp *dto.DashboardResponse
		err  error
	)
	switch role {
	case models.RoleProfessor:
		resp, err = s.professorDashboard(ctx, userID)
	case models.RoleStudent:
		resp, err = s.studentDashboard(ctx, userID)
	case models.RoleAdmin:
		resp, err = s.adminDashboard(ctx)
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "no dashboard for this role")
	}
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

func (s *DashboardService) professorDashboard(ctx context.Context, professorID string) (*dto.DashboardResponse, error) {
	status := models.RequestPending
	pending, err := s.requests.List(ctx, models.AdvisoryRequestFilter{ProfessorID: professorID, Status: &status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending requests")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	sessions, err := s.sessions.ListDatesByProfessorOn(ctx, professorID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's sessions")
	}

	slots, err := s.slots.List(ctx, models.TimeSlotFilter{ProfessorID: professorID, ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active slots")
	}

	return &dto.DashboardResponse{
		Role: dto.DashboardProfessor,
		Professor: &dto.ProfessorDashboard{
			PendingRequests: pending,
			TodaySessions:   sessions,
			ActiveSlots:     slots,
		},
	}, nil
}

func (s *DashboardService) studentDashboard(ctx context.Context, studentID string) (*dto.DashboardResponse, error) {
	requests, err := s.requests.List(ctx, models.AdvisoryRequestFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests")
	}

	upcoming, err := s.sessions.ListUpcomingDatesForStudent(ctx, studentID, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming sessions")
	}

	invitations, err := s.invitations.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitations")
	}
	now := time.Now().UTC()
	open := make([]models.StudentInvitation, 0, len(invitations))
	for _, invitation := range invitations {
		if invitation.Status == models.InvitationPending && !invitation.Expired(now) {
			open = append(open, invitation)
		}
	}

	return &dto.DashboardResponse{
		Role: dto.DashboardStudent,
		Student: &dto.StudentDashboard{
			MyRequests:       requests,
			UpcomingSessions: upcoming,
			OpenInvitations:  open,
		},
	}, nil
}

func (s *DashboardService) adminDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	professorRole := models.RoleProfessor
	_, professors, err := s.users.List(ctx, models.UserFilter{Role: &professorRole, Page: 1, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count professors")
	}

	studentRole := models.RoleStudent
	_, students, err := s.users.List(ctx, models.UserFilter{Role: &studentRole, Page: 1, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	open, err := s.requests.CountByStatus(ctx, models.RequestPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open requests")
	}

	var system models.SystemMetrics
	if s.metrics != nil {
		system = s.metrics.Snapshot()
	}

	return &dto.DashboardResponse{
		Role: dto.DashboardAdmin,
		Admin: &dto.AdminDashboard{
			TotalProfessors: professors,
			TotalStudents:   students,
			OpenRequests:    open,
			System:          system,
		},
	}, nil
}
