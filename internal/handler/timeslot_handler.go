package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// TimeSlotHandler handles professor availability endpoints.
type TimeSlotHandler struct {
	service *service.TimeSlotService
}

// NewTimeSlotHandler constructs a time slot handler.
func NewTimeSlotHandler(svc *service.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{service: svc}
}

// List godoc
// @Summary List time slots
// @Tags TimeSlots
// @Produce json
// @Param professor_id query string false "Professor ID"
// @Param subject_detail_id query string false "Subject detail ID"
// @Param day query string false "Day of week"
// @Param active query bool false "Active only"
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *TimeSlotHandler) List(c *gin.Context) {
	filter := models.TimeSlotFilter{
		ProfessorID:     c.Query("professor_id"),
		SubjectDetailID: c.Query("subject_detail_id"),
		DayOfWeek:       models.DayOfWeek(c.Query("day")),
		ActiveOnly:      c.Query("active") == "true",
	}
	slots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get time slot by id
// @Tags TimeSlots
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id} [get]
func (h *TimeSlotHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Publish an availability slot
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body service.CreateTimeSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /time-slots [post]
func (h *TimeSlotHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update an availability slot
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param id path string true "Time slot ID"
// @Param payload body service.UpdateTimeSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id} [put]
func (h *TimeSlotHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Deactivate godoc
// @Summary Deactivate an availability slot
// @Tags TimeSlots
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 204
// @Router /time-slots/{id}/deactivate [post]
func (h *TimeSlotHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an availability slot
// @Tags TimeSlots
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 204
// @Router /time-slots/{id} [delete]
func (h *TimeSlotHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
