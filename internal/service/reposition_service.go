package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/repository"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
)

// minRejectionReason is the shortest accepted rejection or cancellation
// reason, so the trail stays useful to whoever resubmits.
const minRejectionReason = 10

type repositionStore interface {
	Create(ctx context.Context, rep *models.Reposition, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.Reposition, error)
	List(ctx context.Context, filter models.RepositionFilter) ([]models.Reposition, *models.Pagination, error)
	ResolveApproval(ctx context.Context, id string, action models.RepositionStatus, approverID string, rejectionReason *string, now time.Time, entry *models.HistoryEntry) error
	EditAndResubmit(ctx context.Context, params repository.EditParams, now time.Time, entry *models.HistoryEntry) error
	Complete(ctx context.Context, id, approverID string, now time.Time, entry *models.HistoryEntry) error
	Cancel(ctx context.Context, id string, reason string, now time.Time, entry *models.HistoryEntry) error
	SoftDelete(ctx context.Context, id string, now time.Time, entry *models.HistoryEntry) error
}

type repositionHistoryStore interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error
}

type repositionNotifier interface {
	Notify(ctx context.Context, payload NotificationPayload)
	NotifyAreas(ctx context.Context, areas []models.Area, excludeUserID string, payload NotificationPayload)
}

// RepositionService orchestrates the reposition lifecycle: creation,
// approval, resubmission and the terminal transitions. Every state change
// leaves a history entry and fans out notifications.
type RepositionService struct {
	repo     repositionStore
	history  repositionHistoryStore
	notifier repositionNotifier
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// RepositionOption customises the service.
type RepositionOption func(*RepositionService)

// WithRepositionLogger overrides the default no-op logger.
func WithRepositionLogger(logger *zap.Logger) RepositionOption {
	return func(s *RepositionService) { s.logger = logger }
}

// WithRepositionClock overrides the time source, mainly for tests.
func WithRepositionClock(now func() time.Time) RepositionOption {
	return func(s *RepositionService) { s.now = now }
}

// WithRepositionMetrics wires the workflow counters.
func WithRepositionMetrics(m *MetricsService) RepositionOption {
	return func(s *RepositionService) { s.metrics = m }
}

// NewRepositionService constructs the service.
func NewRepositionService(repo repositionStore, history repositionHistoryStore, notifier repositionNotifier, opts ...RepositionOption) *RepositionService {
	s := &RepositionService{
		repo:     repo,
		history:  history,
		notifier: notifier,
		validate: validator.New(),
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a new reposition in pendiente for the actor's area and
// notifies the approver areas.
func (s *RepositionService) Create(ctx context.Context, actor Actor, req dto.CreateRepositionRequest) (*models.Reposition, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := validateTypeFields(req); err != nil {
		return nil, err
	}

	now := s.now()
	rep := &models.Reposition{
		Type:                 req.Type,
		SolicitanteNombre:    strings.TrimSpace(req.SolicitanteNombre),
		ModeloPrenda:         req.ModeloPrenda,
		Tela:                 req.Tela,
		Color:                req.Color,
		TipoPieza:            req.TipoPieza,
		ConsumoTela:          req.ConsumoTela,
		Urgencia:             req.Urgencia,
		Observaciones:        req.Observaciones,
		CausanteDano:         req.CausanteDano,
		DescripcionSuceso:    req.DescripcionSuceso,
		VolverHacer:          req.VolverHacer,
		MaterialesImplicados: req.MaterialesImplicados,
		SolicitanteArea:      actor.Area,
		CurrentArea:          actor.Area,
		Status:               models.StatusPendiente,
		CreatedBy:            actor.UserID,
		CreatedAt:            now,
		Pieces:               toPieces(req.Pieces),
		Products:             toProducts(req.Products),
	}

	pieceTotal := totalPieces(rep.Pieces)
	entry := &models.HistoryEntry{
		Action:      models.HistoryActionCreated,
		Description: fmt.Sprintf("Reposition opened by %s (%s)", actor.Name, actor.Area),
		UserID:      actor.UserID,
		FromArea:    &rep.SolicitanteArea,
		Pieces:      &pieceTotal,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, rep, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reposition")
	}
	s.metrics.RepositionCreated()
	s.logger.Info("reposition created",
		zap.String("id", rep.ID),
		zap.String("folio", rep.Folio),
		zap.String("area", string(actor.Area)))

	s.notifier.NotifyAreas(ctx, approverAreas(), actor.UserID, NotificationPayload{
		Type:         models.NotificationRepositionCreated,
		Title:        "Nueva solicitud " + rep.Folio,
		Message:      fmt.Sprintf("%s opened a %s request awaiting approval", actor.Name, rep.Type),
		RepositionID: rep.ID,
	})
	return rep, nil
}

// GetByID returns one reposition. Soft-deleted records stay visible only
// to terminal-authority areas.
func (s *RepositionService) GetByID(ctx context.Context, actor Actor, id string) (*models.Reposition, error) {
	rep, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status == models.StatusEliminado && !models.IsTerminalAuthority(actor.Area) {
		return nil, appErrors.ErrNotFound
	}
	return rep, nil
}

// List returns a reposition page. Non-approver areas only see records that
// belong to their area, either as holder or as solicitante.
func (s *RepositionService) List(ctx context.Context, actor Actor, query dto.RepositionQuery) ([]models.Reposition, *models.Pagination, error) {
	filter := models.RepositionFilter{
		Status:   query.Status,
		Type:     query.Type,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if models.IsApproverArea(actor.Area) {
		filter.Area = query.Area
		filter.IncludeDeleted = query.IncludeDeleted && models.IsTerminalAuthority(actor.Area)
	} else {
		filter.Area = actor.Area
	}

	repositions, pagination, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list repositions")
	}
	return repositions, pagination, nil
}

// Approve resolves a pending reposition to aprobado or rechazado. Only
// approver areas may call it; a rejection carries a mandatory reason.
func (s *RepositionService) Approve(ctx context.Context, actor Actor, id string, req dto.ApproveRepositionRequest) (*models.Reposition, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !models.IsApproverArea(actor.Area) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only approver areas can resolve repositions")
	}

	var rejectionReason *string
	action := models.HistoryActionApproved
	if req.Action == models.StatusRechazado {
		reason := strings.TrimSpace(req.Notes)
		if len(reason) < minRejectionReason {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("rejection reason must be at least %d characters", minRejectionReason))
		}
		rejectionReason = &reason
		action = models.HistoryActionRejected
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: id,
		Action:       action,
		Description:  fmt.Sprintf("Resolved as %s by %s (%s)", req.Action, actor.Name, actor.Area),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.repo.ResolveApproval(ctx, id, req.Action, actor.UserID, rejectionReason, now, entry); err != nil {
		return nil, s.mapStatusChangeError(ctx, id, err, models.StatusPendiente)
	}

	rep, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyCreator(ctx, rep, actor, notificationForApproval(req.Action), rep.Folio, rejectionReason)
	return rep, nil
}

// Edit resubmits a rejected reposition. Only the user who opened it may
// edit, and the record returns to pendiente with its approval trail cleared.
func (s *RepositionService) Edit(ctx context.Context, actor Actor, id string, req dto.EditRepositionRequest) (*models.Reposition, error) {
	rep, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != rep.CreatedBy {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the user who opened the reposition can edit it")
	}
	if rep.Status != models.StatusRechazado {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only rejected repositions can be edited")
	}
	if req.Urgencia != "" && req.Urgencia != models.UrgenciaUrgente &&
		req.Urgencia != models.UrgenciaIntermedio && req.Urgencia != models.UrgenciaPocoUrgente {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid urgencia")
	}

	params := repository.EditParams{
		ID:                   id,
		SolicitanteNombre:    fallback(req.SolicitanteNombre, rep.SolicitanteNombre),
		ModeloPrenda:         fallback(req.ModeloPrenda, rep.ModeloPrenda),
		Tela:                 fallback(req.Tela, rep.Tela),
		Color:                fallback(req.Color, rep.Color),
		TipoPieza:            fallback(req.TipoPieza, rep.TipoPieza),
		ConsumoTela:          req.ConsumoTela,
		Urgencia:             models.Urgencia(fallback(string(req.Urgencia), string(rep.Urgencia))),
		Observaciones:        req.Observaciones,
		CausanteDano:         fallback(req.CausanteDano, rep.CausanteDano),
		DescripcionSuceso:    fallback(req.DescripcionSuceso, rep.DescripcionSuceso),
		VolverHacer:          fallback(req.VolverHacer, rep.VolverHacer),
		MaterialesImplicados: fallback(req.MaterialesImplicados, rep.MaterialesImplicados),
		Pieces:               toPieces(req.Pieces),
		Products:             toProducts(req.Products),
	}
	if len(params.Pieces) == 0 {
		params.Pieces = rep.Pieces
	}
	if len(params.Products) == 0 {
		params.Products = rep.Products
	}
	if params.ConsumoTela == nil {
		params.ConsumoTela = rep.ConsumoTela
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: id,
		Action:       models.HistoryActionUpdated,
		Description:  fmt.Sprintf("Edited and resubmitted by %s (%s)", actor.Name, actor.Area),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.repo.EditAndResubmit(ctx, params, now, entry); err != nil {
		return nil, s.mapStatusChangeError(ctx, id, err, models.StatusRechazado)
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyAreas(ctx, approverAreas(), actor.UserID, NotificationPayload{
		Type:         models.NotificationRepositionUpdated,
		Title:        "Solicitud corregida " + updated.Folio,
		Message:      fmt.Sprintf("%s resubmitted the request for review", actor.Name),
		RepositionID: updated.ID,
	})
	return updated, nil
}

// Complete closes an approved reposition when the actor has terminal
// authority. Any other area records a completion request instead, which
// only notifies: the status does not move until an authority confirms.
func (s *RepositionService) Complete(ctx context.Context, actor Actor, id string, req dto.CompleteRepositionRequest) (*models.Reposition, error) {
	rep, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status != models.StatusAprobado {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only approved repositions can be completed")
	}

	now := s.now()
	if !models.IsTerminalAuthority(actor.Area) {
		entry := &models.HistoryEntry{
			RepositionID: id,
			Action:       models.HistoryActionCompletionRequested,
			Description:  fmt.Sprintf("Completion requested by %s (%s)", actor.Name, actor.Area),
			UserID:       actor.UserID,
			CreatedAt:    now,
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion request")
		}
		s.notifier.NotifyAreas(ctx, []models.Area{models.AreaAdmin, models.AreaEnvios}, actor.UserID, NotificationPayload{
			Type:         models.NotificationCompletionRequested,
			Title:        "Finalización solicitada " + rep.Folio,
			Message:      fmt.Sprintf("%s (%s) asks to close the request", actor.Name, actor.Area),
			RepositionID: rep.ID,
		})
		return rep, nil
	}

	entry := &models.HistoryEntry{
		RepositionID: id,
		Action:       models.HistoryActionCompleted,
		Description:  strings.TrimSpace(fmt.Sprintf("Completed by %s (%s). %s", actor.Name, actor.Area, req.Notes)),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.repo.Complete(ctx, id, actor.UserID, now, entry); err != nil {
		return nil, s.mapStatusChangeError(ctx, id, err, models.StatusAprobado)
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyCreator(ctx, updated, actor, models.NotificationRepositionCompleted, updated.Folio, nil)
	return updated, nil
}

// Cancel terminates an approved reposition with a mandatory reason.
// Terminal authority only.
func (s *RepositionService) Cancel(ctx context.Context, actor Actor, id string, req dto.CancelRepositionRequest) (*models.Reposition, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !models.IsTerminalAuthority(actor.Area) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admin or envios can cancel repositions")
	}

	now := s.now()
	reason := strings.TrimSpace(req.Reason)
	entry := &models.HistoryEntry{
		RepositionID: id,
		Action:       models.HistoryActionCanceled,
		Description:  fmt.Sprintf("Canceled by %s (%s): %s", actor.Name, actor.Area, reason),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.repo.Cancel(ctx, id, reason, now, entry); err != nil {
		return nil, s.mapStatusChangeError(ctx, id, err, models.StatusAprobado)
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyCreator(ctx, updated, actor, models.NotificationRepositionCanceled, updated.Folio, &reason)
	return updated, nil
}

// Delete hides a reposition from regular listings. Terminal authority
// only, and never from a terminal state.
func (s *RepositionService) Delete(ctx context.Context, actor Actor, id string) error {
	if !models.IsTerminalAuthority(actor.Area) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admin or envios can delete repositions")
	}

	rep, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if rep.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "reposition is already closed")
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: id,
		Action:       models.HistoryActionDeleted,
		Description:  fmt.Sprintf("Deleted by %s (%s)", actor.Name, actor.Area),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.repo.SoftDelete(ctx, id, now, entry); err != nil {
		return s.mapStatusChangeError(ctx, id, err, rep.Status)
	}
	s.notifyCreator(ctx, rep, actor, models.NotificationRepositionDeleted, rep.Folio, nil)
	return nil
}

func (s *RepositionService) fetch(ctx context.Context, id string) (*models.Reposition, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reposition")
	}
	return rep, nil
}

// mapStatusChangeError turns a guarded-update miss into either a 404 or a
// state conflict, depending on whether the record exists at all.
func (s *RepositionService) mapStatusChangeError(ctx context.Context, id string, err error, expected models.RepositionStatus) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reposition")
	}
	rep, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
	}
	return appErrors.Clone(appErrors.ErrInvalidState,
		fmt.Sprintf("reposition is %s, expected %s", rep.Status, expected))
}

// notifyCreator targets the user who opened the reposition.
func (s *RepositionService) notifyCreator(ctx context.Context, rep *models.Reposition, actor Actor, notificationType, folio string, reason *string) {
	if rep.CreatedBy == "" || rep.CreatedBy == actor.UserID {
		return
	}
	message := fmt.Sprintf("Resolved by %s (%s)", actor.Name, actor.Area)
	if reason != nil {
		message = fmt.Sprintf("%s: %s", message, *reason)
	}
	s.notifier.Notify(ctx, NotificationPayload{
		UserIDs:      []string{rep.CreatedBy},
		Type:         notificationType,
		Title:        notificationTitle(notificationType, folio),
		Message:      message,
		RepositionID: rep.ID,
	})
}

func notificationForApproval(action models.RepositionStatus) string {
	if action == models.StatusAprobado {
		return models.NotificationRepositionApproved
	}
	return models.NotificationRepositionRejected
}

func notificationTitle(notificationType, folio string) string {
	switch notificationType {
	case models.NotificationRepositionApproved:
		return "Solicitud aprobada " + folio
	case models.NotificationRepositionRejected:
		return "Solicitud rechazada " + folio
	case models.NotificationRepositionCompleted:
		return "Solicitud completada " + folio
	case models.NotificationRepositionCanceled:
		return "Solicitud cancelada " + folio
	case models.NotificationRepositionDeleted:
		return "Solicitud eliminada " + folio
	}
	return "Solicitud " + folio
}

func approverAreas() []models.Area {
	return []models.Area{models.AreaOperaciones, models.AreaAdmin, models.AreaEnvios}
}

// validateTypeFields enforces the per-type payload requirements that the
// struct tags cannot express.
func validateTypeFields(req dto.CreateRepositionRequest) error {
	switch req.Type {
	case models.TypeRepocision:
		if len(req.Pieces) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "a repocision requires at least one piece")
		}
		if req.ModeloPrenda == "" || req.Tela == "" || req.Color == "" {
			return appErrors.Clone(appErrors.ErrValidation, "modelo_prenda, tela and color are required for a repocision")
		}
	case models.TypeReproceso:
		if strings.TrimSpace(req.VolverHacer) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "volver_hacer is required for a reproceso")
		}
		if strings.TrimSpace(req.MaterialesImplicados) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "materiales_implicados is required for a reproceso")
		}
	}
	for _, p := range req.Pieces {
		if p.Cantidad <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "piece quantities must be positive")
		}
	}
	return nil
}

func toPieces(payloads []dto.PiecePayload) []models.Piece {
	pieces := make([]models.Piece, 0, len(payloads))
	for _, p := range payloads {
		pieces = append(pieces, models.Piece{
			Talla:         p.Talla,
			Cantidad:      p.Cantidad,
			FolioOriginal: p.FolioOriginal,
		})
	}
	return pieces
}

func toProducts(payloads []dto.ProductPayload) []models.Product {
	products := make([]models.Product, 0, len(payloads))
	for _, p := range payloads {
		products = append(products, models.Product{
			ModeloPrenda: p.ModeloPrenda,
			Tela:         p.Tela,
			Color:        p.Color,
			TipoPieza:    p.TipoPieza,
			ConsumoTela:  p.ConsumoTela,
		})
	}
	return products
}

func totalPieces(pieces []models.Piece) int {
	total := 0
	for _, p := range pieces {
		total += p.Cantidad
	}
	return total
}

func fallback(value, current string) string {
	if strings.TrimSpace(value) == "" {
		return current
	}
	return value
}
