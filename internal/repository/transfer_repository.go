package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jn-uniformes/taller-api/internal/models"
)

// Sentinel errors surfaced by transfer workflow writes.
var (
	// ErrRepositionNotApproved is returned when the reposition left the
	// aprobado state between the caller's read and the locked re-check.
	ErrRepositionNotApproved = errors.New("reposition is not approved")
	// ErrPendingTransferExists is returned when a pending handoff from the
	// same area already exists, either found directly or via the partial
	// unique index losing a race.
	ErrPendingTransferExists = errors.New("pending transfer already exists")
	// ErrTransferAlreadyProcessed is returned when the handshake was
	// resolved by someone else first.
	ErrTransferAlreadyProcessed = errors.New("transfer already processed")
)

// CooldownActiveError reports an active anti-spam window on (reposition, area).
type CooldownActiveError struct {
	RemainingMinutes int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("transfer cooldown active, %d minute(s) remaining", e.RemainingMinutes)
}

const transferColumns = `t.id, t.reposition_id, t.from_area, t.to_area, t.status, t.notes,
       t.consumo_tela, t.created_by, t.created_at, t.processed_by, t.processed_at, t.rejection_reason`

// TransferRepository is the append-only ledger of area handoff requests.
type TransferRepository struct {
	db       *sqlx.DB
	cooldown time.Duration
}

// NewTransferRepository constructs the repository with the anti-spam window.
func NewTransferRepository(db *sqlx.DB, cooldown time.Duration) *TransferRepository {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &TransferRepository{db: db, cooldown: cooldown}
}

// GetByID fetches one transfer.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM reposition_transfers t WHERE t.id = $1`, transferColumns)
	var transfer models.Transfer
	if err := r.db.GetContext(ctx, &transfer, query, id); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// ListByReposition returns the handoff trail, oldest first, with names resolved.
func (r *TransferRepository) ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s,
       COALESCE(req.name, '') AS requester_name, COALESCE(proc.name, '') AS processor_name
	FROM reposition_transfers t
	LEFT JOIN users req ON req.id = t.created_by
	LEFT JOIN users proc ON proc.id = t.processed_by
	WHERE t.reposition_id = $1
	ORDER BY t.created_at ASC`, transferColumns)
	var transfers []models.Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, repositionID); err != nil {
		return nil, fmt.Errorf("list reposition transfers: %w", err)
	}
	return transfers, nil
}

// Cooldown checks whether (reposition, fromArea) is inside the anti-spam
// window: first against the most recent pending handoff, then against the
// most recent handoff of any status. A processed transfer still blocks
// resubmission until the window expires.
func (r *TransferRepository) Cooldown(ctx context.Context, repositionID string, fromArea models.Area, now time.Time) (*models.CooldownStatus, error) {
	return r.cooldownCheck(ctx, r.db, repositionID, fromArea, now)
}

func (r *TransferRepository) cooldownCheck(ctx context.Context, q sqlx.QueryerContext, repositionID string, fromArea models.Area, now time.Time) (*models.CooldownStatus, error) {
	const pendingQuery = `SELECT created_at FROM reposition_transfers
	WHERE reposition_id = $1 AND from_area = $2 AND status = $3
	ORDER BY created_at DESC LIMIT 1`
	var createdAt time.Time
	err := sqlx.GetContext(ctx, q, &createdAt, pendingQuery, repositionID, fromArea, models.TransferPending)
	switch {
	case err == nil:
		if remaining := r.cooldown - now.Sub(createdAt); remaining > 0 {
			return &models.CooldownStatus{Blocked: true, RemainingMinutes: ceilMinutes(remaining)}, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// fall through to the any-status recency check
	default:
		return nil, fmt.Errorf("check pending transfer: %w", err)
	}

	const recentQuery = `SELECT created_at FROM reposition_transfers
	WHERE reposition_id = $1 AND from_area = $2 AND created_at > $3
	ORDER BY created_at DESC LIMIT 1`
	err = sqlx.GetContext(ctx, q, &createdAt, recentQuery, repositionID, fromArea, now.Add(-r.cooldown))
	switch {
	case err == nil:
		if remaining := r.cooldown - now.Sub(createdAt); remaining > 0 {
			return &models.CooldownStatus{Blocked: true, RemainingMinutes: ceilMinutes(remaining)}, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("check recent transfer: %w", err)
	}

	return &models.CooldownStatus{}, nil
}

func ceilMinutes(d time.Duration) int {
	minutes := int(math.Ceil(d.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// RequestParams carries a new handoff proposal.
type RequestParams struct {
	RepositionID string
	FromArea     models.Area
	ToArea       models.Area
	Notes        string
	ConsumoTela  *float64
	RequestedBy  string
	Now          time.Time
}

// Request inserts a pending handoff. The reposition row is locked for the
// whole check-then-insert sequence, so two near-simultaneous requests from
// the same area serialize instead of both passing the cooldown check. When
// the handoff leaves corte for a repocision, the fabric consumption is
// recorded onto the reposition in the same transaction.
func (r *TransferRepository) Request(ctx context.Context, params RequestParams, entry *models.HistoryEntry) (transfer *models.Transfer, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var rep struct {
		Status models.RepositionStatus `db:"status"`
		Type   models.RepositionType   `db:"type"`
	}
	const lockQuery = `SELECT status, type FROM repositions WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &rep, lockQuery, params.RepositionID); err != nil {
		return nil, err
	}
	if rep.Status != models.StatusAprobado {
		return nil, ErrRepositionNotApproved
	}

	var pendingCount int
	const pendingQuery = `SELECT COUNT(*) FROM reposition_transfers
	WHERE reposition_id = $1 AND from_area = $2 AND status = $3`
	if err = tx.GetContext(ctx, &pendingCount, pendingQuery, params.RepositionID, params.FromArea, models.TransferPending); err != nil {
		return nil, fmt.Errorf("count pending transfers: %w", err)
	}

	cooldown, err := r.cooldownCheck(ctx, tx, params.RepositionID, params.FromArea, params.Now)
	if err != nil {
		return nil, err
	}
	if cooldown.Blocked {
		return nil, &CooldownActiveError{RemainingMinutes: cooldown.RemainingMinutes}
	}
	if pendingCount > 0 {
		return nil, ErrPendingTransferExists
	}

	transfer = &models.Transfer{
		ID:           uuid.NewString(),
		RepositionID: params.RepositionID,
		FromArea:     params.FromArea,
		ToArea:       params.ToArea,
		Status:       models.TransferPending,
		Notes:        params.Notes,
		ConsumoTela:  params.ConsumoTela,
		CreatedBy:    params.RequestedBy,
		CreatedAt:    params.Now,
	}
	const insertQuery = `INSERT INTO reposition_transfers
	(id, reposition_id, from_area, to_area, status, notes, consumo_tela, created_by, created_at)
	VALUES (:id, :reposition_id, :from_area, :to_area, :status, :notes, :consumo_tela, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, transfer); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrPendingTransferExists
		}
		return nil, fmt.Errorf("insert transfer: %w", err)
	}

	if params.FromArea == models.AreaCorte && rep.Type == models.TypeRepocision && params.ConsumoTela != nil {
		const consumoQuery = `UPDATE repositions SET consumo_tela = $1, updated_at = $2 WHERE id = $3`
		if _, err = tx.ExecContext(ctx, consumoQuery, params.ConsumoTela, params.Now, params.RepositionID); err != nil {
			return nil, fmt.Errorf("record fabric consumption: %w", err)
		}
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer request: %w", err)
	}
	return transfer, nil
}

// ProcessParams resolves a pending handoff.
type ProcessParams struct {
	TransferID      string
	Action          models.TransferStatus
	ProcessedBy     string
	RejectionReason *string
	Now             time.Time
}

// Process accepts or rejects a pending handoff. On accept the reposition's
// current area moves to the destination, and the returned-to-creator flag
// flips when the destination is the solicitante area. Both the transfer row
// and the reposition row are locked so concurrent processors cannot race.
func (r *TransferRepository) Process(ctx context.Context, params ProcessParams, entry *models.HistoryEntry) (transfer *models.Transfer, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer process: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var t models.Transfer
	lockQuery := fmt.Sprintf(`SELECT %s FROM reposition_transfers t WHERE t.id = $1 FOR UPDATE`, transferColumns)
	if err = tx.GetContext(ctx, &t, lockQuery, params.TransferID); err != nil {
		return nil, err
	}
	if t.Status != models.TransferPending {
		return nil, ErrTransferAlreadyProcessed
	}

	const updateQuery = `UPDATE reposition_transfers
	SET status = $1, processed_by = $2, processed_at = $3, rejection_reason = $4
	WHERE id = $5`
	if _, err = tx.ExecContext(ctx, updateQuery, params.Action, params.ProcessedBy, params.Now, params.RejectionReason, params.TransferID); err != nil {
		return nil, fmt.Errorf("update transfer: %w", err)
	}

	if params.Action == models.TransferAccepted {
		var rep struct {
			Status          models.RepositionStatus `db:"status"`
			SolicitanteArea models.Area             `db:"solicitante_area"`
		}
		const repLockQuery = `SELECT status, solicitante_area FROM repositions WHERE id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &rep, repLockQuery, t.RepositionID); err != nil {
			return nil, err
		}
		if rep.Status != models.StatusAprobado {
			return nil, ErrRepositionNotApproved
		}

		const moveQuery = `UPDATE repositions
		SET current_area = $1,
		    has_returned_to_creator = has_returned_to_creator OR (solicitante_area = $1),
		    updated_at = $2
		WHERE id = $3`
		if _, err = tx.ExecContext(ctx, moveQuery, t.ToArea, params.Now, t.RepositionID); err != nil {
			return nil, fmt.Errorf("move reposition area: %w", err)
		}
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer process: %w", err)
	}

	t.Status = params.Action
	t.ProcessedBy = &params.ProcessedBy
	t.ProcessedAt = &params.Now
	t.RejectionReason = params.RejectionReason
	return &t, nil
}
