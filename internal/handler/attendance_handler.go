package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// AttendanceHandler handles attendance endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Record godoc
// @Summary Record attendance for a session participant
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attendance, err := h.service.Record(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendance, nil)
}

// ListBySession godoc
// @Summary List a session's attendance sheet
// @Tags Attendance
// @Produce json
// @Param dateId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{dateId} [get]
func (h *AttendanceHandler) ListBySession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.ListBySession(c.Request.Context(), claims.UserID, c.Param("dateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListMine godoc
// @Summary List the caller's attendance history
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/mine [get]
func (h *AttendanceHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Export godoc
// @Summary Export a session's attendance sheet
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param dateId path string true "Session ID"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /attendance/sessions/{dateId}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.ExportSession(c.Request.Context(), claims.UserID, c.Param("dateId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

// ExportAdvisory godoc
// @Summary Export an advisory's full attendance history to a stored report
// @Tags Attendance
// @Produce json
// @Param id path string true "Advisory ID"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /attendance/advisories/{id}/export [get]
func (h *AttendanceHandler) ExportAdvisory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.ExportAdvisory(c.Request.Context(), claims.UserID, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Download godoc
// @Summary Download a stored report by signed token
// @Tags Attendance
// @Param token path string true "Signed download token"
// @Success 200
// @Router /attendance/reports/{token} [get]
func (h *AttendanceHandler) Download(c *gin.Context) {
	path, filename, err := h.service.ResolveReport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filename)
}
