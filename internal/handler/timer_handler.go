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

type timerService interface {
	Start(ctx context.Context, actor service.Actor, repositionID string) (*models.Timer, error)
	Stop(ctx context.Context, actor service.Actor, repositionID string) (*models.Timer, error)
	SetManual(ctx context.Context, actor service.Actor, repositionID string, req dto.ManualTimerRequest) (*models.Timer, error)
	Get(ctx context.Context, actor service.Actor, repositionID string) (*models.Timer, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error)
}

// TimerHandler exposes working-time endpoints.
type TimerHandler struct {
	service timerService
}

// NewTimerHandler constructs the handler.
func NewTimerHandler(service timerService) *TimerHandler {
	return &TimerHandler{service: service}
}

// Start godoc
// @Summary Start the caller area's timer on a reposition
// @Tags Timers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/timer/start [post]
func (h *TimerHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	timer, err := h.service.Start(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timer, nil)
}

// Stop godoc
// @Summary Stop the caller area's running timer
// @Tags Timers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/timer/stop [post]
func (h *TimerHandler) Stop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	timer, err := h.service.Stop(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timer, nil)
}

// SetManual godoc
// @Summary Backfill a manual working-time interval
// @Tags Timers
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.ManualTimerRequest true "Interval"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/timer/manual [post]
func (h *TimerHandler) SetManual(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ManualTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid manual timer payload"))
		return
	}
	timer, err := h.service.SetManual(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timer, nil)
}

// Get godoc
// @Summary Caller area's timer on a reposition
// @Tags Timers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/timer [get]
func (h *TimerHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	timer, err := h.service.Get(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timer, nil)
}

// List godoc
// @Summary Logged time of every area on a reposition
// @Tags Timers
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/timers [get]
func (h *TimerHandler) List(c *gin.Context) {
	timers, err := h.service.ListByReposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timers, nil)
}
