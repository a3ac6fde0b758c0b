package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// AvailabilityHandler exposes materialized slot availability.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Slots godoc
// @Summary Get a professor's available slots on a date
// @Tags Availability
// @Produce json
// @Param professor_id query string true "Professor ID"
// @Param subject_detail_id query string false "Subject detail ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	professorID := c.Query("professor_id")
	if professorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "professor_id is required"))
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), professorID, c.Query("subject_detail_id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Schedule godoc
// @Summary Get a subject detail's availability over a date range
// @Tags Availability
// @Produce json
// @Param detailId path string true "Subject detail ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/subjects/{detailId} [get]
func (h *AvailabilityHandler) Schedule(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}

	days, err := h.service.GetAvailableSchedulesForSubject(c.Request.Context(), c.Param("detailId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
