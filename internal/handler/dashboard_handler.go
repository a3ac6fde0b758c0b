package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/middleware"
	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// DashboardHandler serves the per-role landing summary.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Get godoc
// @Summary Get the caller's dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cached, err := h.service.Get(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
