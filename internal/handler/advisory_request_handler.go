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

// AdvisoryRequestHandler handles the request workflow endpoints.
type AdvisoryRequestHandler struct {
	service *service.AdvisoryRequestService
}

// NewAdvisoryRequestHandler constructs an advisory request handler.
func NewAdvisoryRequestHandler(svc *service.AdvisoryRequestService) *AdvisoryRequestHandler {
	return &AdvisoryRequestHandler{service: svc}
}

type processRequestPayload struct {
	Response string `json:"response"`
}

// Create godoc
// @Summary Open an advisory request
// @Tags AdvisoryRequests
// @Accept json
// @Produce json
// @Param payload body service.CreateAdvisoryRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /advisory-requests [post]
func (h *AdvisoryRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAdvisoryRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get an advisory request
// @Tags AdvisoryRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/{id} [get]
func (h *AdvisoryRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ListMine godoc
// @Summary List the caller's advisory requests
// @Tags AdvisoryRequests
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/mine [get]
func (h *AdvisoryRequestHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var status *models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		parsed := models.RequestStatus(raw)
		if !parsed.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status"))
			return
		}
		status = &parsed
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	requests, err := h.service.ListMine(c.Request.Context(), claims.UserID, status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListPending godoc
// @Summary List a professor's pending request queue
// @Tags AdvisoryRequests
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/pending [get]
func (h *AdvisoryRequestHandler) ListPending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	requests, err := h.service.ListPending(c.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags AdvisoryRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/{id}/approve [post]
func (h *AdvisoryRequestHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload processRequestPayload
	_ = c.ShouldBindJSON(&payload)

	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID, payload.Response)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags AdvisoryRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/{id}/reject [post]
func (h *AdvisoryRequestHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload processRequestPayload
	_ = c.ShouldBindJSON(&payload)

	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, payload.Response)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Cancel godoc
// @Summary Cancel a request
// @Tags AdvisoryRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /advisory-requests/{id}/cancel [post]
func (h *AdvisoryRequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
