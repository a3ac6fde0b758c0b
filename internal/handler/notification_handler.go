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

// NotificationHandler handles preference and history endpoints.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

type preferencePayload struct {
	Enabled bool `json:"enabled"`
}

// Preferences godoc
// @Summary List the caller's notification preferences
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/preferences [get]
func (h *NotificationHandler) Preferences(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	prefs, err := h.service.Preferences(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// UpdatePreference godoc
// @Summary Toggle a notification preference
// @Tags Notifications
// @Accept json
// @Produce json
// @Param event path string true "Notification event"
// @Param payload body preferencePayload true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Router /notifications/preferences/{event} [put]
func (h *NotificationHandler) UpdatePreference(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload preferencePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pref, err := h.service.UpdatePreference(c.Request.Context(), claims.UserID, models.NotificationEvent(c.Param("event")), payload.Enabled)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// History godoc
// @Summary List the caller's notification delivery history
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /notifications/history [get]
func (h *NotificationHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.service.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
