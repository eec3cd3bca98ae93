package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/service"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, actor service.Actor, repositionID, originalName string, size int64, r io.Reader) (*models.Document, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Document, error)
	SignedLink(ctx context.Context, documentID string) (string, time.Time, error)
	Download(ctx context.Context, token string) (*models.Document, *os.File, error)
}

// DocumentHandler exposes attachment endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload godoc
// @Summary Attach a file to a reposition
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Reposition ID"
// @Param file formData file true "Attachment"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /repositions/{id}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field 'file' is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read uploaded file"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.service.Upload(c.Request.Context(), actorFromClaims(claims),
		c.Param("id"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List the attachments of a reposition
// @Tags Documents
// @Produce json
// @Param id path string true "Reposition ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /repositions/{id}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	documents, err := h.service.ListByReposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, nil)
}

// SignedLink godoc
// @Summary Issue a short-lived download link for an attachment
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/link [get]
func (h *DocumentHandler) SignedLink(c *gin.Context) {
	token, expiresAt, err := h.service.SignedLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	}, nil)
}

// Download streams an attachment referenced by a signed token. The token
// is the credential, so the route itself is left unauthenticated.
// @Summary Download an attachment via signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	doc, file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename="+doc.OriginalName)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
