package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// VenueHandler handles venue endpoints.
type VenueHandler struct {
	service *service.VenueService
}

// NewVenueHandler constructs a venue handler.
func NewVenueHandler(svc *service.VenueService) *VenueHandler {
	return &VenueHandler{service: svc}
}

// List godoc
// @Summary List venues
// @Tags Venues
// @Produce json
// @Param search query string false "Search keyword"
// @Param active query bool false "Filter by active"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /venues [get]
func (h *VenueHandler) List(c *gin.Context) {
	var filter models.VenueFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	venues, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, venues, pagination)
}

// Get godoc
// @Summary Get venue by id
// @Tags Venues
// @Produce json
// @Param id path string true "Venue ID"
// @Success 200 {object} response.Envelope
// @Router /venues/{id} [get]
func (h *VenueHandler) Get(c *gin.Context) {
	venue, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, venue, nil)
}

// Create godoc
// @Summary Create venue
// @Tags Venues
// @Accept json
// @Produce json
// @Param payload body service.CreateVenueRequest true "Venue payload"
// @Success 201 {object} response.Envelope
// @Router /venues [post]
func (h *VenueHandler) Create(c *gin.Context) {
	var req service.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	venue, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, venue)
}

// Update godoc
// @Summary Update venue
// @Tags Venues
// @Accept json
// @Produce json
// @Param id path string true "Venue ID"
// @Param payload body service.UpdateVenueRequest true "Venue payload"
// @Success 200 {object} response.Envelope
// @Router /venues/{id} [put]
func (h *VenueHandler) Update(c *gin.Context) {
	var req service.UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	venue, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, venue, nil)
}

// Delete godoc
// @Summary Delete venue
// @Tags Venues
// @Produce json
// @Param id path string true "Venue ID"
// @Success 204
// @Router /venues/{id} [delete]
func (h *VenueHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
