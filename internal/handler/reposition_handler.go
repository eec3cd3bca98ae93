package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/service"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/response"
)

type repositionService interface {
	Create(ctx context.Context, actor service.Actor, req dto.CreateRepositionRequest) (*models.Reposition, error)
	GetByID(ctx context.Context, actor service.Actor, id string) (*models.Reposition, error)
	List(ctx context.Context, actor service.Actor, query dto.RepositionQuery) ([]models.Reposition, *models.Pagination, error)
	Approve(ctx context.Context, actor service.Actor, id string, req dto.ApproveRepositionRequest) (*models.Reposition, error)
	Edit(ctx context.Context, actor service.Actor, id string, req dto.EditRepositionRequest) (*models.Reposition, error)
	Complete(ctx context.Context, actor service.Actor, id string, req dto.CompleteRepositionRequest) (*models.Reposition, error)
	Cancel(ctx context.Context, actor service.Actor, id string, req dto.CancelRepositionRequest) (*models.Reposition, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

type trackingService interface {
	Get(ctx context.Context, repositionID string) (*dto.TrackingView, error)
	History(ctx context.Context, repositionID string) ([]models.HistoryEntry, error)
	ExportCSV(ctx context.Context, repositionID string) ([]byte, string, error)
	ExportPDF(ctx context.Context, repositionID string) ([]byte, string, error)
}

// RepositionHandler exposes REST endpoints for the reposition lifecycle.
type RepositionHandler struct {
	service  repositionService
	tracking trackingService
}

// NewRepositionHandler constructs the handler.
func NewRepositionHandler(service repositionService, tracking trackingService) *RepositionHandler {
	return &RepositionHandler{service: service, tracking: tracking}
}

// Create godoc
// @Summary Open a new reposition
// @Tags Repositions
// @Accept json
// @Produce json
// @Param payload body dto.CreateRepositionRequest true "Reposition payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /repositions [post]
func (h *RepositionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRepositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reposition payload"))
		return
	}
	rep, err := h.service.Create(c.Request.Context(), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rep)
}

// List godoc
// @Summary List repositions visible to the caller
// @Tags Repositions
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param type query string false "repocision or reproceso"
// @Param area query string false "Area filter (approver areas only)"
// @Param include_deleted query bool false "Include soft-deleted records (admin/envios)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions [get]
func (h *RepositionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.RepositionQuery{
		Area:           models.Area(strings.TrimSpace(c.Query("area"))),
		Type:           models.RepositionType(strings.TrimSpace(c.Query("type"))),
		IncludeDeleted: c.Query("include_deleted") == "true",
		Page:           intQuery(c, "page", 1),
		PageSize:       intQuery(c, "page_size", 20),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				query.Status = append(query.Status, models.RepositionStatus(trimmed))
			}
		}
	}
	repositions, pagination, err := h.service.List(c.Request.Context(), actorFromClaims(claims), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repositions, pagination)
}

// Get godoc
// @Summary Fetch one reposition
// @Tags Repositions
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id} [get]
func (h *RepositionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rep, err := h.service.GetByID(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Approve godoc
// @Summary Approve or reject a pending reposition
// @Tags Repositions
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.ApproveRepositionRequest true "Resolution"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/approval [post]
func (h *RepositionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApproveRepositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	rep, err := h.service.Approve(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Edit godoc
// @Summary Edit and resubmit a rejected reposition
// @Tags Repositions
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.EditRepositionRequest true "Updated fields"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id} [put]
func (h *RepositionHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EditRepositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	rep, err := h.service.Edit(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Complete godoc
// @Summary Complete a reposition or request its completion
// @Tags Repositions
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.CompleteRepositionRequest false "Completion notes"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/complete [post]
func (h *RepositionHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CompleteRepositionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid completion payload"))
		return
	}
	rep, err := h.service.Complete(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Cancel godoc
// @Summary Cancel an approved reposition
// @Tags Repositions
// @Accept json
// @Produce json
// @Param id path string true "Reposition ID"
// @Param payload body dto.CancelRepositionRequest true "Cancellation reason"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/cancel [post]
func (h *RepositionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CancelRepositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cancellation payload"))
		return
	}
	rep, err := h.service.Cancel(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Delete godoc
// @Summary Soft-delete a reposition
// @Tags Repositions
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 204
// @Router /repositions/{id} [delete]
func (h *RepositionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFromClaims(claims), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Tracking godoc
// @Summary Tracking view of a reposition
// @Tags Repositions
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/tracking [get]
func (h *RepositionHandler) Tracking(c *gin.Context) {
	view, err := h.tracking.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// History godoc
// @Summary Audit trail of a reposition
// @Tags Repositions
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/history [get]
func (h *RepositionHandler) History(c *gin.Context) {
	entries, err := h.tracking.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the tracking view as CSV or PDF
// @Tags Repositions
// @Produce octet-stream
// @Param id path string true "Reposition ID"
// @Param format query string false "csv (default) or pdf"
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /repositions/{id}/tracking/export [get]
func (h *RepositionHandler) Export(c *gin.Context) {
	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "pdf":
		data, filename, err = h.tracking.ExportPDF(c.Request.Context(), c.Param("id"))
		contentType = "application/pdf"
	case "csv":
		data, filename, err = h.tracking.ExportCSV(c.Request.Context(), c.Param("id"))
		contentType = "text/csv"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
