package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/middleware"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/service"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
)

type repositionServiceMock struct {
	createResp *models.Reposition
	createErr  error
	listResp   []models.Reposition
	listErr    error
	getResp    *models.Reposition
	getErr     error
	approveErr error
	deleteErr  error

	lastQuery   dto.RepositionQuery
	lastActor   service.Actor
	createCalls int
	listCalls   int
}

func (m *repositionServiceMock) Create(ctx context.Context, actor service.Actor, req dto.CreateRepositionRequest) (*models.Reposition, error) {
	m.createCalls++
	m.lastActor = actor
	return m.createResp, m.createErr
}

func (m *repositionServiceMock) GetByID(ctx context.Context, actor service.Actor, id string) (*models.Reposition, error) {
	return m.getResp, m.getErr
}

func (m *repositionServiceMock) List(ctx context.Context, actor service.Actor, query dto.RepositionQuery) ([]models.Reposition, *models.Pagination, error) {
	m.listCalls++
	m.lastQuery = query
	return m.listResp, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(m.listResp)}, m.listErr
}

func (m *repositionServiceMock) Approve(ctx context.Context, actor service.Actor, id string, req dto.ApproveRepositionRequest) (*models.Reposition, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return m.getResp, nil
}

func (m *repositionServiceMock) Edit(ctx context.Context, actor service.Actor, id string, req dto.EditRepositionRequest) (*models.Reposition, error) {
	return m.getResp, m.getErr
}

func (m *repositionServiceMock) Complete(ctx context.Context, actor service.Actor, id string, req dto.CompleteRepositionRequest) (*models.Reposition, error) {
	return m.getResp, m.getErr
}

func (m *repositionServiceMock) Cancel(ctx context.Context, actor service.Actor, id string, req dto.CancelRepositionRequest) (*models.Reposition, error) {
	return m.getResp, m.getErr
}

func (m *repositionServiceMock) Delete(ctx context.Context, actor service.Actor, id string) error {
	return m.deleteErr
}

type trackingServiceMock struct {
	view    *dto.TrackingView
	history []models.HistoryEntry
	csv     []byte
	pdf     []byte
	err     error
}

func (m *trackingServiceMock) Get(ctx context.Context, repositionID string) (*dto.TrackingView, error) {
	return m.view, m.err
}

func (m *trackingServiceMock) History(ctx context.Context, repositionID string) ([]models.HistoryEntry, error) {
	return m.history, m.err
}

func (m *trackingServiceMock) ExportCSV(ctx context.Context, repositionID string) ([]byte, string, error) {
	return m.csv, "tracking-JN-REQ-08-26-001.csv", m.err
}

func (m *trackingServiceMock) ExportPDF(ctx context.Context, repositionID string) ([]byte, string, error) {
	return m.pdf, "tracking-JN-REQ-08-26-001.pdf", m.err
}

func corteClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Name: "Maria", Area: models.AreaCorte}
}

func TestRepositionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &repositionServiceMock{
		createResp: &models.Reposition{ID: "rep-1", Folio: "JN-REQ-08-26-001", Status: models.StatusPendiente},
	}
	handler := NewRepositionHandler(mockSvc, &trackingServiceMock{})

	payload, _ := json.Marshal(dto.CreateRepositionRequest{
		Type:              models.TypeRepocision,
		SolicitanteNombre: "Maria",
		ModeloPrenda:      "Camisa escolar",
		Tela:              "Gabardina",
		Color:             "Azul",
		Urgencia:          models.UrgenciaUrgente,
		Pieces:            []dto.PiecePayload{{Talla: "M", Cantidad: 2}},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/repositions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, mockSvc.createCalls)
	assert.Equal(t, models.AreaCorte, mockSvc.lastActor.Area)
	assert.Contains(t, w.Body.String(), "JN-REQ-08-26-001")
}

func TestRepositionHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRepositionHandler(&repositionServiceMock{}, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/repositions", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRepositionHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &repositionServiceMock{}
	handler := NewRepositionHandler(mockSvc, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/repositions", bytes.NewBufferString(`{"type":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.createCalls)
}

func TestRepositionHandlerListParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &repositionServiceMock{
		listResp: []models.Reposition{{ID: "rep-1", Folio: "JN-REQ-08-26-001"}},
	}
	handler := NewRepositionHandler(mockSvc, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/repositions?status=pendiente,aprobado&type=repocision&page=2&page_size=10", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.listCalls)
	assert.Equal(t, []models.RepositionStatus{models.StatusPendiente, models.StatusAprobado}, mockSvc.lastQuery.Status)
	assert.Equal(t, models.TypeRepocision, mockSvc.lastQuery.Type)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, 10, mockSvc.lastQuery.PageSize)
}

func TestRepositionHandlerApproveServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &repositionServiceMock{approveErr: appErrors.ErrForbidden}
	handler := NewRepositionHandler(mockSvc, &trackingServiceMock{})

	payload, _ := json.Marshal(dto.ApproveRepositionRequest{Action: models.StatusAprobado})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/repositions/rep-1/approval", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Approve(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRepositionHandlerCompleteEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &repositionServiceMock{
		getResp: &models.Reposition{ID: "rep-1", Status: models.StatusCompletado},
	}
	handler := NewRepositionHandler(mockSvc, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/repositions/rep-1/complete", bytes.NewBufferString(""))
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "completado")
}

func TestRepositionHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRepositionHandler(&repositionServiceMock{}, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/repositions/rep-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRepositionHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracking := &trackingServiceMock{csv: []byte("Area,Estado\ncorte,completed\n")}
	handler := NewRepositionHandler(&repositionServiceMock{}, tracking)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/repositions/rep-1/tracking/export?format=csv", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "tracking-JN-REQ-08-26-001.csv")
}

func TestRepositionHandlerExportUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRepositionHandler(&repositionServiceMock{}, &trackingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/repositions/rep-1/tracking/export?format=xlsx", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, corteClaims())

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
