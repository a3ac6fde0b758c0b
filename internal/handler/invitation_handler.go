package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-advisory-api/internal/service"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/response"
)

// InvitationHandler handles session invitation endpoints.
type InvitationHandler struct {
	service *service.InvitationService
}

// NewInvitationHandler constructs an invitation handler.
func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{service: svc}
}

type respondPayload struct {
	Accept bool `json:"accept"`
}

// Invite godoc
// @Summary Invite a student to a dated session
// @Tags Invitations
// @Accept json
// @Produce json
// @Param payload body service.InviteRequest true "Invitation payload"
// @Success 201 {object} response.Envelope
// @Router /invitations [post]
func (h *InvitationHandler) Invite(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invitation, err := h.service.Invite(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invitation)
}

// Respond godoc
// @Summary Accept or decline an invitation
// @Tags Invitations
// @Accept json
// @Produce json
// @Param id path string true "Invitation ID"
// @Param payload body respondPayload true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /invitations/{id}/respond [post]
func (h *InvitationHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload respondPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invitation, err := h.service.Respond(c.Request.Context(), c.Param("id"), claims.UserID, payload.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitation, nil)
}

// ListMine godoc
// @Summary List the caller's invitations
// @Tags Invitations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invitations/mine [get]
func (h *InvitationHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	invitations, err := h.service.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}

// ListBySession godoc
// @Summary List invitations on a session
// @Tags Invitations
// @Produce json
// @Param dateId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /invitations/sessions/{dateId} [get]
func (h *InvitationHandler) ListBySession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	invitations, err := h.service.ListForSession(c.Request.Context(), c.Param("dateId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}
