package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/service"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/response"
)

type transferService interface {
	Request(ctx context.Context, actor service.Actor, repositionID string, req dto.RequestTransferRequest) (*models.Transfer, error)
	Process(ctx context.Context, actor service.Actor, transferID string, req dto.ProcessTransferRequest) (*models.Transfer, error)
	Cooldown(ctx context.Context, actor service.Actor, repositionID string) (*models.CooldownStatus, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error)
}

// TransferHandler exposes the area handoff endpoints.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(service transferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Request godoc
// @Summary Request a handoff to another area
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.RequestTransferRequest true "Handoff payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /repositions/{id}/transfers [post]
func (h *TransferHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RequestTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transfer payload"))
		return
	}
	transfer, err := h.service.Request(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// Process godoc
// @Summary Accept or reject a pending handoff
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.ProcessTransferRequest true "Resolution"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/process [post]
func (h *TransferHandler) Process(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ProcessTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid process payload"))
		return
	}
	transfer, err := h.service.Process(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// Cooldown godoc
// @Summary Cooldown status for the caller's area on a reposition
// @Tags Transfers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/transfers/cooldown [get]
func (h *TransferHandler) Cooldown(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.Cooldown(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"blocked":           status.Blocked,
		"remaining_minutes": status.RemainingMinutes,
	}, nil)
}

// List godoc
// @Summary Handoff ledger of a reposition
// @Tags Transfers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	transfers, err := h.service.ListByReposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfers, nil)
}
