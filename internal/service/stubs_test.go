package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/repository"
)

// repositionStoreStub mirrors the guarded-update behaviour of the real
// repository: a status guard miss surfaces as sql.ErrNoRows.
type repositionStoreStub struct {
	repositions map[string]*models.Reposition
	filter      models.RepositionFilter
	folioSeq    int
}

func newRepositionStoreStub() *repositionStoreStub {
	return &repositionStoreStub{repositions: make(map[string]*models.Reposition)}
}

func (s *repositionStoreStub) Create(ctx context.Context, rep *models.Reposition, entry *models.HistoryEntry) error {
	s.folioSeq++
	if rep.ID == "" {
		rep.ID = fmt.Sprintf("rep-%d", s.folioSeq)
	}
	rep.Folio = fmt.Sprintf("JN-REQ-%02d-%02d-%03d", int(rep.CreatedAt.Month()), rep.CreatedAt.Year()%100, s.folioSeq)
	copied := *rep
	s.repositions[rep.ID] = &copied
	return nil
}

func (s *repositionStoreStub) GetByID(ctx context.Context, id string) (*models.Reposition, error) {
	rep, ok := s.repositions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rep
	return &copied, nil
}

func (s *repositionStoreStub) List(ctx context.Context, filter models.RepositionFilter) ([]models.Reposition, *models.Pagination, error) {
	s.filter = filter
	result := make([]models.Reposition, 0, len(s.repositions))
	for _, rep := range s.repositions {
		if rep.Status == models.StatusEliminado && !filter.IncludeDeleted {
			continue
		}
		if filter.Area != "" && rep.CurrentArea != filter.Area && rep.SolicitanteArea != filter.Area {
			continue
		}
		result = append(result, *rep)
	}
	return result, &models.Pagination{Page: 1, PageSize: len(result), TotalCount: len(result)}, nil
}

func (s *repositionStoreStub) ResolveApproval(ctx context.Context, id string, action models.RepositionStatus, approverID string, rejectionReason *string, now time.Time, entry *models.HistoryEntry) error {
	rep, ok := s.repositions[id]
	if !ok || rep.Status != models.StatusPendiente {
		return sql.ErrNoRows
	}
	rep.Status = action
	rep.ApprovedBy = &approverID
	rep.ApprovedAt = &now
	rep.RejectionReason = rejectionReason
	return nil
}

func (s *repositionStoreStub) EditAndResubmit(ctx context.Context, params repository.EditParams, now time.Time, entry *models.HistoryEntry) error {
	rep, ok := s.repositions[params.ID]
	if !ok || rep.Status != models.StatusRechazado {
		return sql.ErrNoRows
	}
	rep.Status = models.StatusPendiente
	rep.SolicitanteNombre = params.SolicitanteNombre
	rep.Urgencia = params.Urgencia
	rep.Pieces = params.Pieces
	rep.Products = params.Products
	rep.RejectionReason = nil
	rep.ApprovedBy = nil
	rep.ApprovedAt = nil
	return nil
}

func (s *repositionStoreStub) Complete(ctx context.Context, id, approverID string, now time.Time, entry *models.HistoryEntry) error {
	rep, ok := s.repositions[id]
	if !ok || rep.Status != models.StatusAprobado {
		return sql.ErrNoRows
	}
	rep.Status = models.StatusCompletado
	rep.CompletedAt = &now
	return nil
}

func (s *repositionStoreStub) Cancel(ctx context.Context, id string, reason string, now time.Time, entry *models.HistoryEntry) error {
	rep, ok := s.repositions[id]
	if !ok || rep.Status != models.StatusAprobado {
		return sql.ErrNoRows
	}
	rep.Status = models.StatusCancelado
	rep.RejectionReason = &reason
	return nil
}

func (s *repositionStoreStub) SoftDelete(ctx context.Context, id string, now time.Time, entry *models.HistoryEntry) error {
	rep, ok := s.repositions[id]
	if !ok || rep.Status.IsTerminal() {
		return sql.ErrNoRows
	}
	rep.Status = models.StatusEliminado
	return nil
}

type historyStub struct {
	entries []*models.HistoryEntry
}

func (h *historyStub) Append(ctx context.Context, entry *models.HistoryEntry) error {
	h.entries = append(h.entries, entry)
	return nil
}

func (h *historyStub) ListByReposition(ctx context.Context, repositionID string) ([]models.HistoryEntry, error) {
	result := make([]models.HistoryEntry, 0, len(h.entries))
	for _, e := range h.entries {
		if e.RepositionID == repositionID {
			result = append(result, *e)
		}
	}
	return result, nil
}

type notifierStub struct {
	payloads []NotificationPayload
	areas    [][]models.Area
	excluded []string
}

func (n *notifierStub) Notify(ctx context.Context, payload NotificationPayload) {
	n.payloads = append(n.payloads, payload)
}

func (n *notifierStub) NotifyAreas(ctx context.Context, areas []models.Area, excludeUserID string, payload NotificationPayload) {
	n.areas = append(n.areas, areas)
	n.excluded = append(n.excluded, excludeUserID)
	n.payloads = append(n.payloads, payload)
}

type timerStoreStub struct {
	timers map[string]*models.Timer
}

func newTimerStoreStub() *timerStoreStub {
	return &timerStoreStub{timers: make(map[string]*models.Timer)}
}

func timerKey(repositionID string, area models.Area) string {
	return repositionID + "|" + string(area)
}

func (s *timerStoreStub) Get(ctx context.Context, repositionID string, area models.Area) (*models.Timer, error) {
	t, ok := s.timers[timerKey(repositionID, area)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *timerStoreStub) ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error) {
	result := make([]models.Timer, 0, len(s.timers))
	for _, t := range s.timers {
		if t.RepositionID == repositionID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (s *timerStoreStub) Start(ctx context.Context, repositionID string, area models.Area, userID string, now time.Time, entry *models.HistoryEntry) (*models.Timer, error) {
	key := timerKey(repositionID, area)
	if existing, ok := s.timers[key]; ok && existing.IsRunning {
		return nil, repository.ErrTimerAlreadyRunning
	}
	t := &models.Timer{
		ID:           key,
		RepositionID: repositionID,
		Area:         area,
		StartTime:    &now,
		IsRunning:    true,
		CreatedBy:    userID,
	}
	s.timers[key] = t
	copied := *t
	return &copied, nil
}

func (s *timerStoreStub) Stop(ctx context.Context, repositionID string, area models.Area, now time.Time, entry *models.HistoryEntry) (*models.Timer, error) {
	key := timerKey(repositionID, area)
	t, ok := s.timers[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !t.IsRunning {
		return nil, repository.ErrTimerNotRunning
	}
	t.IsRunning = false
	t.EndTime = &now
	t.ElapsedMinutes = int(now.Sub(*t.StartTime).Minutes())
	copied := *t
	return &copied, nil
}

func (s *timerStoreStub) SetManual(ctx context.Context, params repository.ManualParams, entry *models.HistoryEntry) error {
	key := timerKey(params.RepositionID, params.Area)
	s.timers[key] = &models.Timer{
		ID:              key,
		RepositionID:    params.RepositionID,
		Area:            params.Area,
		ManualStartTime: &params.StartTime,
		ManualEndTime:   &params.EndTime,
		ManualDate:      &params.Date,
		ElapsedMinutes:  params.ElapsedMinutes,
		CreatedBy:       params.UserID,
	}
	return nil
}

// transferStoreStub enforces the pending-uniqueness and cooldown rules the
// real repository enforces inside its transaction.
type transferStoreStub struct {
	transfers   map[string]*models.Transfer
	repositions *repositionStoreStub
	cooldown    time.Duration
	seq         int
}

func newTransferStoreStub(repositions *repositionStoreStub, cooldown time.Duration) *transferStoreStub {
	return &transferStoreStub{
		transfers:   make(map[string]*models.Transfer),
		repositions: repositions,
		cooldown:    cooldown,
	}
}

func (s *transferStoreStub) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	t, ok := s.transfers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *transferStoreStub) ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error) {
	result := make([]models.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if t.RepositionID == repositionID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (s *transferStoreStub) Cooldown(ctx context.Context, repositionID string, fromArea models.Area, now time.Time) (*models.CooldownStatus, error) {
	for _, t := range s.transfers {
		if t.RepositionID != repositionID || t.FromArea != fromArea {
			continue
		}
		elapsed := now.Sub(t.CreatedAt)
		if t.Status == models.TransferPending || elapsed < s.cooldown {
			remaining := int((s.cooldown - elapsed).Minutes())
			if remaining < 1 {
				remaining = 1
			}
			return &models.CooldownStatus{Blocked: true, RemainingMinutes: remaining}, nil
		}
	}
	return &models.CooldownStatus{}, nil
}

func (s *transferStoreStub) Request(ctx context.Context, params repository.RequestParams, entry *models.HistoryEntry) (*models.Transfer, error) {
	rep, ok := s.repositions.repositions[params.RepositionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if rep.Status != models.StatusAprobado {
		return nil, repository.ErrRepositionNotApproved
	}
	for _, t := range s.transfers {
		if t.RepositionID != params.RepositionID || t.FromArea != params.FromArea {
			continue
		}
		if t.Status == models.TransferPending {
			return nil, repository.ErrPendingTransferExists
		}
		if remaining := s.cooldown - params.Now.Sub(t.CreatedAt); remaining > 0 {
			minutes := int(remaining.Minutes())
			if minutes < 1 {
				minutes = 1
			}
			return nil, &repository.CooldownActiveError{RemainingMinutes: minutes}
		}
	}
	s.seq++
	transfer := &models.Transfer{
		ID:           fmt.Sprintf("tr-%d", s.seq),
		RepositionID: params.RepositionID,
		FromArea:     params.FromArea,
		ToArea:       params.ToArea,
		Status:       models.TransferPending,
		Notes:        params.Notes,
		ConsumoTela:  params.ConsumoTela,
		CreatedBy:    params.RequestedBy,
		CreatedAt:    params.Now,
	}
	s.transfers[transfer.ID] = transfer
	copied := *transfer
	return &copied, nil
}

func (s *transferStoreStub) Process(ctx context.Context, params repository.ProcessParams, entry *models.HistoryEntry) (*models.Transfer, error) {
	t, ok := s.transfers[params.TransferID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if t.Status != models.TransferPending {
		return nil, repository.ErrTransferAlreadyProcessed
	}
	t.Status = params.Action
	t.ProcessedBy = &params.ProcessedBy
	t.ProcessedAt = &params.Now
	t.RejectionReason = params.RejectionReason
	if params.Action == models.TransferAccepted {
		rep, ok := s.repositions.repositions[t.RepositionID]
		if !ok {
			return nil, sql.ErrNoRows
		}
		if rep.Status != models.StatusAprobado {
			return nil, repository.ErrRepositionNotApproved
		}
		rep.CurrentArea = t.ToArea
		if t.ToArea == rep.SolicitanteArea {
			rep.HasReturnedToCreator = true
		}
	}
	copied := *t
	return &copied, nil
}
