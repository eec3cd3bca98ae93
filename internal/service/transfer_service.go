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

// minTransferRejectionReason keeps handoff rejections explainable.
const minTransferRejectionReason = 5

type transferStore interface {
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error)
	Cooldown(ctx context.Context, repositionID string, fromArea models.Area, now time.Time) (*models.CooldownStatus, error)
	Request(ctx context.Context, params repository.RequestParams, entry *models.HistoryEntry) (*models.Transfer, error)
	Process(ctx context.Context, params repository.ProcessParams, entry *models.HistoryEntry) (*models.Transfer, error)
}

type transferRepositionStore interface {
	GetByID(ctx context.Context, id string) (*models.Reposition, error)
}

type transferTimerStore interface {
	Get(ctx context.Context, repositionID string, area models.Area) (*models.Timer, error)
}

// transferGuard is the Redis fast path in front of the database cooldown
// check. A nil guard disables the fast path, the database check still holds.
type transferGuard interface {
	Acquire(ctx context.Context, repositionID, fromArea string) (bool, time.Duration, error)
	Release(ctx context.Context, repositionID, fromArea string) error
}

// TransferService runs the area handoff handshake: a holder area proposes
// the move, the destination area accepts or rejects it. Requests from the
// same (reposition, area) pair are rate limited to one per cooldown window.
type TransferService struct {
	transfers   transferStore
	repositions transferRepositionStore
	timers      transferTimerStore
	guard       transferGuard
	notifier    repositionNotifier
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// TransferOption customises the service.
type TransferOption func(*TransferService)

// WithTransferLogger overrides the default no-op logger.
func WithTransferLogger(logger *zap.Logger) TransferOption {
	return func(s *TransferService) { s.logger = logger }
}

// WithTransferClock overrides the time source, mainly for tests.
func WithTransferClock(now func() time.Time) TransferOption {
	return func(s *TransferService) { s.now = now }
}

// WithTransferGuard wires the Redis cooldown fast path.
func WithTransferGuard(guard transferGuard) TransferOption {
	return func(s *TransferService) { s.guard = guard }
}

// WithTransferMetrics wires the workflow counters.
func WithTransferMetrics(m *MetricsService) TransferOption {
	return func(s *TransferService) { s.metrics = m }
}

// NewTransferService constructs the service.
func NewTransferService(transfers transferStore, repositions transferRepositionStore, timers transferTimerStore, notifier repositionNotifier, opts ...TransferOption) *TransferService {
	s := &TransferService{
		transfers:   transfers,
		repositions: repositions,
		timers:      timers,
		notifier:    notifier,
		validate:    validator.New(),
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request proposes a handoff of the reposition from the actor's area. The
// actor must hold the reposition, must have logged working time first, and
// must be outside the cooldown window for this reposition.
func (s *TransferService) Request(ctx context.Context, actor Actor, repositionID string, req dto.RequestTransferRequest) (*models.Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !models.CanTransfer(actor.Area, req.ToArea) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cannot transfer from %s to %s", actor.Area, req.ToArea))
	}

	rep, err := s.repositions.GetByID(ctx, repositionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reposition")
	}
	if actor.Area != rep.CurrentArea {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the area holding the reposition can transfer it")
	}
	if rep.Status != models.StatusAprobado {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only approved repositions can be transferred")
	}
	if err := s.requireLoggedTime(ctx, rep, actor.Area); err != nil {
		return nil, err
	}

	if s.guard != nil {
		ok, remaining, guardErr := s.guard.Acquire(ctx, repositionID, string(actor.Area))
		if guardErr != nil {
			// Redis being down never blocks the workflow.
			s.logger.Warn("cooldown guard unavailable", zap.Error(guardErr))
		} else if !ok {
			s.metrics.RateLimitHit()
			return nil, cooldownError(remainingMinutes(remaining))
		}
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: repositionID,
		Action:       models.HistoryActionTransferRequested,
		Description:  fmt.Sprintf("Transfer to %s requested by %s", req.ToArea, actor.Name),
		UserID:       actor.UserID,
		FromArea:     &actor.Area,
		ToArea:       &req.ToArea,
		CreatedAt:    now,
	}
	transfer, err := s.transfers.Request(ctx, repository.RequestParams{
		RepositionID: repositionID,
		FromArea:     actor.Area,
		ToArea:       req.ToArea,
		Notes:        req.Notes,
		ConsumoTela:  req.ConsumoTela,
		RequestedBy:  actor.UserID,
		Now:          now,
	}, entry)
	if err != nil {
		s.releaseGuard(ctx, repositionID, actor.Area, err)
		return nil, s.mapRequestError(err)
	}

	s.metrics.TransferRequested()
	s.logger.Info("transfer requested",
		zap.String("reposition_id", repositionID),
		zap.String("from", string(actor.Area)),
		zap.String("to", string(req.ToArea)))

	s.notifier.NotifyAreas(ctx, []models.Area{req.ToArea}, actor.UserID, NotificationPayload{
		Type:         models.NotificationTransferRequested,
		Title:        "Transferencia entrante " + rep.Folio,
		Message:      fmt.Sprintf("%s (%s) wants to hand off the reposition to your area", actor.Name, actor.Area),
		RepositionID: repositionID,
	})
	return transfer, nil
}

// Process accepts or rejects a pending handoff. Only users of the
// destination area may resolve it; a rejection carries a short reason.
func (s *TransferService) Process(ctx context.Context, actor Actor, transferID string, req dto.ProcessTransferRequest) (*models.Transfer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	pending, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transfer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer")
	}
	if actor.Area != pending.ToArea {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the destination area can resolve this transfer")
	}

	var rejectionReason *string
	action := models.HistoryActionTransferAccepted
	if req.Action == models.TransferRejected {
		reason := strings.TrimSpace(req.Reason)
		if len(reason) < minTransferRejectionReason {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("rejection reason must be at least %d characters", minTransferRejectionReason))
		}
		rejectionReason = &reason
		action = models.HistoryActionTransferRejected
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: pending.RepositionID,
		Action:       action,
		Description:  fmt.Sprintf("Transfer %s by %s (%s)", req.Action, actor.Name, actor.Area),
		UserID:       actor.UserID,
		FromArea:     &pending.FromArea,
		ToArea:       &pending.ToArea,
		CreatedAt:    now,
	}
	transfer, err := s.transfers.Process(ctx, repository.ProcessParams{
		TransferID:      transferID,
		Action:          req.Action,
		ProcessedBy:     actor.UserID,
		RejectionReason: rejectionReason,
		Now:             now,
	}, entry)
	if err != nil {
		return nil, s.mapProcessError(err)
	}

	s.metrics.TransferProcessed(string(req.Action))
	notificationType := models.NotificationTransferAccepted
	message := fmt.Sprintf("%s (%s) accepted the handoff", actor.Name, actor.Area)
	if req.Action == models.TransferRejected {
		notificationType = models.NotificationTransferRejected
		message = fmt.Sprintf("%s (%s) rejected the handoff: %s", actor.Name, actor.Area, *rejectionReason)
	}
	s.notifier.Notify(ctx, NotificationPayload{
		UserIDs:      []string{transfer.CreatedBy},
		Type:         notificationType,
		Title:        "Transferencia resuelta",
		Message:      message,
		RepositionID: transfer.RepositionID,
	})
	if req.Action == models.TransferAccepted {
		// The rest of the destination area learns the piece arrived; the
		// processor already knows.
		s.notifier.NotifyAreas(ctx, []models.Area{transfer.ToArea}, actor.UserID, NotificationPayload{
			Type:         models.NotificationTransferAccepted,
			Title:        "Reposicion recibida",
			Message:      fmt.Sprintf("The reposition moved from %s to %s", transfer.FromArea, transfer.ToArea),
			RepositionID: transfer.RepositionID,
		})
	}
	return transfer, nil
}

// Cooldown reports whether the actor's area may request a handoff for the
// reposition right now, and how long it must wait otherwise.
func (s *TransferService) Cooldown(ctx context.Context, actor Actor, repositionID string) (*models.CooldownStatus, error) {
	status, err := s.transfers.Cooldown(ctx, repositionID, actor.Area, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cooldown")
	}
	return status, nil
}

// ListByReposition returns the handoff ledger of one reposition.
func (s *TransferService) ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error) {
	transfers, err := s.transfers.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}
	return transfers, nil
}

// requireLoggedTime enforces the log-before-transfer rule: an area must
// record working time on the reposition before handing it off. The
// solicitante area is exempt until the reposition first returns to it.
func (s *TransferService) requireLoggedTime(ctx context.Context, rep *models.Reposition, area models.Area) error {
	if area == rep.SolicitanteArea && !rep.HasReturnedToCreator {
		return nil
	}
	timer, err := s.timers.Get(ctx, rep.ID, area)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "log working time before requesting a transfer")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check logged time")
	}
	if !timer.Bounded() {
		return appErrors.Clone(appErrors.ErrInvalidState, "stop the running timer before requesting a transfer")
	}
	return nil
}

// releaseGuard drops the Redis key after a failed request, unless the
// failure was the database cooldown itself still holding.
func (s *TransferService) releaseGuard(ctx context.Context, repositionID string, area models.Area, cause error) {
	if s.guard == nil {
		return
	}
	var cooldownErr *repository.CooldownActiveError
	if errors.As(cause, &cooldownErr) {
		return
	}
	if err := s.guard.Release(ctx, repositionID, string(area)); err != nil {
		s.logger.Debug("failed to release cooldown guard", zap.Error(err))
	}
}

func (s *TransferService) mapRequestError(err error) error {
	var cooldownErr *repository.CooldownActiveError
	switch {
	case errors.As(err, &cooldownErr):
		s.metrics.RateLimitHit()
		return cooldownError(cooldownErr.RemainingMinutes)
	case errors.Is(err, repository.ErrPendingTransferExists):
		return appErrors.Clone(appErrors.ErrConflict, "a pending transfer from this area already exists")
	case errors.Is(err, repository.ErrRepositionNotApproved):
		return appErrors.Clone(appErrors.ErrInvalidState, "only approved repositions can be transferred")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request transfer")
}

func (s *TransferService) mapProcessError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTransferAlreadyProcessed):
		return appErrors.Clone(appErrors.ErrConflict, "transfer was already processed")
	case errors.Is(err, repository.ErrRepositionNotApproved):
		return appErrors.Clone(appErrors.ErrInvalidState, "reposition is no longer approved")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "transfer not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process transfer")
}

func cooldownError(minutes int) error {
	return appErrors.WithDetails(appErrors.ErrRateLimited,
		fmt.Sprintf("wait %d minute(s) before requesting another transfer", minutes),
		map[string]interface{}{"remaining_minutes": minutes})
}

func remainingMinutes(d time.Duration) int {
	minutes := int(d.Minutes())
	if d > time.Duration(minutes)*time.Minute {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
