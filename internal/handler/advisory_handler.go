package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// AdvisoryHandler handles advisory, schedule and session endpoints.
type AdvisoryHandler struct {
	service *service.AdvisoryService
}

// NewAdvisoryHandler constructs an advisory handler.
func NewAdvisoryHandler(svc *service.AdvisoryService) *AdvisoryHandler {
	return &AdvisoryHandler{service: svc}
}

type createFromRequestPayload struct {
	MaxStudents int    `json:"max_students" binding:"required,min=1"`
	Notes       string `json:"notes"`
}

// List godoc
// @Summary List advisories
// @Tags Advisories
// @Produce json
// @Param professor_id query string false "Professor ID"
// @Param subject_detail_id query string false "Subject detail ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /advisories [get]
func (h *AdvisoryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter := models.AdvisoryFilter{
		ProfessorID:     c.Query("professor_id"),
		SubjectDetailID: c.Query("subject_detail_id"),
		Page:            page,
		PageSize:        limit,
	}
	advisories, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advisories, nil)
}

// Get godoc
// @Summary Get an advisory with schedules and sessions
// @Tags Advisories
// @Produce json
// @Param id path string true "Advisory ID"
// @Success 200 {object} response.Envelope
// @Router /advisories/{id} [get]
func (h *AdvisoryHandler) Get(c *gin.Context) {
	advisory, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advisory, nil)
}

// Create godoc
// @Summary Open an advisory
// @Tags Advisories
// @Accept json
// @Produce json
// @Param payload body service.CreateAdvisoryRequest true "Advisory payload"
// @Success 201 {object} response.Envelope
// @Router /advisories [post]
func (h *AdvisoryHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	advisory, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, advisory)
}

// CreateFromRequest godoc
// @Summary Open an advisory from an approved request
// @Tags Advisories
// @Accept json
// @Produce json
// @Param requestId path string true "Request ID"
// @Success 201 {object} response.Envelope
// @Router /advisories/from-request/{requestId} [post]
func (h *AdvisoryHandler) CreateFromRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload createFromRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	advisory, err := h.service.CreateFromRequest(c.Request.Context(), c.Param("requestId"), claims.UserID, payload.MaxStudents, payload.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, advisory)
}

// AddSchedule godoc
// @Summary Add a weekly schedule entry
// @Tags Advisories
// @Accept json
// @Produce json
// @Param id path string true "Advisory ID"
// @Param payload body service.AddScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /advisories/{id}/schedules [post]
func (h *AdvisoryHandler) AddSchedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.AddSchedule(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// AddDate godoc
// @Summary Add a dated session
// @Tags Advisories
// @Accept json
// @Produce json
// @Param id path string true "Advisory ID"
// @Param payload body service.AddDateRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /advisories/{id}/dates [post]
func (h *AdvisoryHandler) AddDate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := h.service.AddDate(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, date)
}

// Join godoc
// @Summary Register the caller on a dated session
// @Tags Advisories
// @Produce json
// @Param dateId path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Router /advisories/dates/{dateId}/participants [post]
func (h *AdvisoryHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	participant, err := h.service.AddParticipant(c.Request.Context(), c.Param("dateId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participant)
}

// Upcoming godoc
// @Summary List the caller's upcoming sessions
// @Tags Advisories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /advisories/upcoming [get]
func (h *AdvisoryHandler) Upcoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dates, err := h.service.ListUpcomingForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates, nil)
}
