package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/middleware"
	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/internal/repository"
	"github.com/noah-isme/sma-advisory-api/internal/service"
)

// RouterConfig bundles handlers for route registration.
type RouterConfig struct {
	AuthService *service.AuthService
	AuditRepo   *repository.UserRepository

	Auth          *AuthHandler
	Users         *UserHandler
	Subjects      *SubjectHandler
	Venues        *VenueHandler
	TimeSlots     *TimeSlotHandler
	Availability  *AvailabilityHandler
	Requests      *AdvisoryRequestHandler
	Advisories    *AdvisoryHandler
	Attendance    *AttendanceHandler
	Invitations   *InvitationHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes wires the API surface under /api/v1.
func RegisterRoutes(r *gin.Engine, cfg RouterConfig) {
	authed := middleware.JWT(cfg.AuthService)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	professorOnly := middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/refresh", cfg.Auth.Refresh)
		auth.POST("/forgot-password", cfg.Auth.ForgotPassword)
		auth.POST("/reset-password", cfg.Auth.ResetPassword)
		auth.POST("/logout", authed, cfg.Auth.Logout)
		auth.POST("/change-password", authed, cfg.Auth.ChangePassword)
		auth.GET("/me", authed, cfg.Auth.Me)
	}

	users := api.Group("/users", authed, adminOnly)
	{
		users.GET("", cfg.Users.List)
		users.POST("", middleware.Audit(cfg.AuditRepo, "create", "user"), cfg.Users.Create)
		users.GET("/:id", cfg.Users.Get)
		users.PUT("/:id", middleware.Audit(cfg.AuditRepo, "update", "user"), cfg.Users.Update)
		users.DELETE("/:id", middleware.Audit(cfg.AuditRepo, "delete", "user"), cfg.Users.Delete)
	}

	subjects := api.Group("/subjects", authed)
	{
		subjects.GET("", cfg.Subjects.List)
		subjects.GET("/:id", cfg.Subjects.Get)
		subjects.GET("/:id/details", cfg.Subjects.ListDetails)
		subjects.POST("", adminOnly, cfg.Subjects.Create)
		subjects.PUT("/:id", adminOnly, cfg.Subjects.Update)
		subjects.DELETE("/:id", adminOnly, cfg.Subjects.Delete)
		subjects.POST("/:id/details", adminOnly, cfg.Subjects.AssignProfessor)
		subjects.DELETE("/details/:detailId", adminOnly, cfg.Subjects.RemoveDetail)
	}

	venues := api.Group("/venues", authed)
	{
		venues.GET("", cfg.Venues.List)
		venues.GET("/:id", cfg.Venues.Get)
		venues.POST("", adminOnly, cfg.Venues.Create)
		venues.PUT("/:id", adminOnly, cfg.Venues.Update)
		venues.DELETE("/:id", adminOnly, cfg.Venues.Delete)
	}

	slots := api.Group("/time-slots", authed)
	{
		slots.GET("", cfg.TimeSlots.List)
		slots.GET("/:id", cfg.TimeSlots.Get)
		slots.POST("", professorOnly, cfg.TimeSlots.Create)
		slots.PUT("/:id", professorOnly, cfg.TimeSlots.Update)
		slots.POST("/:id/deactivate", professorOnly, cfg.TimeSlots.Deactivate)
		slots.DELETE("/:id", professorOnly, cfg.TimeSlots.Delete)
	}

	availability := api.Group("/availability", authed)
	{
		availability.GET("/slots", cfg.Availability.Slots)
		availability.GET("/subjects/:detailId", cfg.Availability.Schedule)
	}

	requests := api.Group("/advisory-requests", authed)
	{
		requests.POST("", studentOnly, cfg.Requests.Create)
		requests.GET("/mine", cfg.Requests.ListMine)
		requests.GET("/pending", professorOnly, cfg.Requests.ListPending)
		requests.GET("/:id", cfg.Requests.Get)
		requests.POST("/:id/approve", professorOnly, cfg.Requests.Approve)
		requests.POST("/:id/reject", professorOnly, cfg.Requests.Reject)
		requests.POST("/:id/cancel", cfg.Requests.Cancel)
	}

	advisories := api.Group("/advisories", authed)
	{
		advisories.GET("", cfg.Advisories.List)
		advisories.GET("/upcoming", cfg.Advisories.Upcoming)
		advisories.GET("/:id", cfg.Advisories.Get)
		advisories.POST("", professorOnly, cfg.Advisories.Create)
		advisories.POST("/from-request/:requestId", professorOnly, cfg.Advisories.CreateFromRequest)
		advisories.POST("/:id/schedules", professorOnly, cfg.Advisories.AddSchedule)
		advisories.POST("/:id/dates", professorOnly, cfg.Advisories.AddDate)
		advisories.POST("/dates/:dateId/participants", studentOnly, cfg.Advisories.Join)
	}

	attendance := api.Group("/attendance", authed)
	{
		attendance.POST("", professorOnly, cfg.Attendance.Record)
		attendance.GET("/mine", cfg.Attendance.ListMine)
		attendance.GET("/sessions/:dateId", professorOnly, cfg.Attendance.ListBySession)
		attendance.GET("/sessions/:dateId/export", professorOnly, cfg.Attendance.Export)
		attendance.GET("/advisories/:id/export", professorOnly, cfg.Attendance.ExportAdvisory)
	}

	// Downloads are authorized by the signed token itself.
	api.GET("/attendance/reports/:token", cfg.Attendance.Download)

	invitations := api.Group("/invitations", authed)
	{
		invitations.POST("", professorOnly, cfg.Invitations.Invite)
		invitations.GET("/mine", cfg.Invitations.ListMine)
		invitations.POST("/:id/respond", studentOnly, cfg.Invitations.Respond)
		invitations.GET("/sessions/:dateId", professorOnly, cfg.Invitations.ListBySession)
	}

	notifications := api.Group("/notifications", authed)
	{
		notifications.GET("/preferences", cfg.Notifications.Preferences)
		notifications.PUT("/preferences/:event", cfg.Notifications.UpdatePreference)
		notifications.GET("/history", cfg.Notifications.History)
	}

	api.GET("/dashboard", authed, cfg.Dashboard.Get)

	if cfg.Metrics != nil {
		r.GET("/metrics", cfg.Metrics.Prometheus)
	}
}
