package dto

import "github.com/noah-isme/sma-advisory-api/internal/models"

// DashboardRole tags the variant carried by a DashboardResponse.
type DashboardRole string

const (
	DashboardProfessor DashboardRole = "PROFESSOR"
	DashboardStudent   DashboardRole = "STUDENT"
	DashboardAdmin     DashboardRole = "ADMIN"
)

// DashboardResponse is a tagged union: exactly one of the role payloads is
// populated, selected once per authenticated identity.
type DashboardResponse struct {
	Role      DashboardRole       `json:"role"`
	Professor *ProfessorDashboard `json:"professor,omitempty"`
	Student   *StudentDashboard   `json:"student,omitempty"`
	Admin     *AdminDashboard     `json:"admin,omitempty"`
}

// ProfessorDashboard summarises a professor's advisory workload.
type ProfessorDashboard struct {
	PendingRequests []models.AdvisoryRequest `json:"pending_requests"`
	TodaySessions   []models.AdvisoryDate    `json:"today_sessions"`
	ActiveSlots     []models.TimeSlot        `json:"active_slots"`
}

// StudentDashboard summarises a student's bookings and invitations.
type StudentDashboard struct {
	MyRequests       []models.AdvisoryRequest   `json:"my_requests"`
	UpcomingSessions []models.AdvisoryDate      `json:"upcoming_sessions"`
	OpenInvitations  []models.StudentInvitation `json:"open_invitations"`
}

// AdminDashboard carries system-wide counters and runtime metrics.
type AdminDashboard struct {
	TotalProfessors int                  `json:"total_professors"`
	TotalStudents   int                  `json:"total_students"`
	OpenRequests    int                  `json:"open_requests"`
	System          models.SystemMetrics `json:"system"`
}
