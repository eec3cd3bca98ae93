package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jn-uniformes/taller-api/internal/models"
)

// Sentinel errors surfaced by timer writes.
var (
	ErrTimerAlreadyRunning = errors.New("timer already running for this area")
	ErrTimerNotRunning     = errors.New("no running timer for this area")
)

const timerColumns = `id, reposition_id, area, start_time, end_time,
       manual_start_time, manual_end_time, manual_date, elapsed_minutes, is_running,
       created_by, updated_at`

// TimerRepository keeps the per-(reposition, area) working-time ledger.
// At most one row exists per composite key; live and manual intervals
// share it with upsert semantics.
type TimerRepository struct {
	db *sqlx.DB
}

// NewTimerRepository constructs the repository.
func NewTimerRepository(db *sqlx.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

// Get fetches the timer for one (reposition, area) pair.
func (r *TimerRepository) Get(ctx context.Context, repositionID string, area models.Area) (*models.Timer, error) {
	query := fmt.Sprintf(`SELECT %s FROM reposition_timers WHERE reposition_id = $1 AND area = $2`, timerColumns)
	var timer models.Timer
	if err := r.db.GetContext(ctx, &timer, query, repositionID, area); err != nil {
		return nil, err
	}
	return &timer, nil
}

// ListByReposition returns all area timers for a reposition.
func (r *TimerRepository) ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error) {
	query := fmt.Sprintf(`SELECT %s FROM reposition_timers WHERE reposition_id = $1`, timerColumns)
	var timers []models.Timer
	if err := r.db.SelectContext(ctx, &timers, query, repositionID); err != nil {
		return nil, fmt.Errorf("list reposition timers: %w", err)
	}
	return timers, nil
}

// Start opens a live interval. The row is locked so two concurrent starts
// for the same (reposition, area) cannot both succeed; the unique key backs
// the check up across connections.
func (r *TimerRepository) Start(ctx context.Context, repositionID string, area models.Area, userID string, now time.Time, entry *models.HistoryEntry) (timer *models.Timer, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin timer start: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing struct {
		ID        string `db:"id"`
		IsRunning bool   `db:"is_running"`
	}
	const lockQuery = `SELECT id, is_running FROM reposition_timers
	WHERE reposition_id = $1 AND area = $2 FOR UPDATE`
	err = tx.GetContext(ctx, &existing, lockQuery, repositionID, area)
	switch {
	case err == nil:
		if existing.IsRunning {
			return nil, ErrTimerAlreadyRunning
		}
		const restartQuery = `UPDATE reposition_timers
		SET start_time = $1, end_time = NULL, is_running = TRUE, created_by = $2, updated_at = $1
		WHERE id = $3`
		if _, err = tx.ExecContext(ctx, restartQuery, now, userID, existing.ID); err != nil {
			return nil, fmt.Errorf("restart timer: %w", err)
		}
		timer = &models.Timer{ID: existing.ID}
	case errors.Is(err, sql.ErrNoRows):
		timer = &models.Timer{ID: uuid.NewString()}
		const insertQuery = `INSERT INTO reposition_timers
		(id, reposition_id, area, start_time, is_running, created_by, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $4)`
		if _, err = tx.ExecContext(ctx, insertQuery, timer.ID, repositionID, area, now, userID); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, ErrTimerAlreadyRunning
			}
			return nil, fmt.Errorf("insert timer: %w", err)
		}
	default:
		return nil, fmt.Errorf("lock timer row: %w", err)
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit timer start: %w", err)
	}

	timer.RepositionID = repositionID
	timer.Area = area
	timer.StartTime = &now
	timer.IsRunning = true
	timer.CreatedBy = userID
	timer.UpdatedAt = now
	return timer, nil
}

// Stop closes the live interval and records whole elapsed minutes. The
// history description carries the elapsed time formatted HH:MM:00.
func (r *TimerRepository) Stop(ctx context.Context, repositionID string, area models.Area, now time.Time, entry *models.HistoryEntry) (timer *models.Timer, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin timer stop: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var t models.Timer
	lockQuery := fmt.Sprintf(`SELECT %s FROM reposition_timers
	WHERE reposition_id = $1 AND area = $2 FOR UPDATE`, timerColumns)
	if err = tx.GetContext(ctx, &t, lockQuery, repositionID, area); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimerNotRunning
		}
		return nil, fmt.Errorf("lock timer row: %w", err)
	}
	if !t.IsRunning || t.StartTime == nil {
		return nil, ErrTimerNotRunning
	}

	elapsed := int(now.Sub(*t.StartTime).Minutes())
	const updateQuery = `UPDATE reposition_timers
	SET end_time = $1, elapsed_minutes = $2, is_running = FALSE, updated_at = $1
	WHERE id = $3`
	if _, err = tx.ExecContext(ctx, updateQuery, now, elapsed, t.ID); err != nil {
		return nil, fmt.Errorf("stop timer: %w", err)
	}

	entry.Description = fmt.Sprintf("%s (%s)", entry.Description, FormatElapsed(elapsed))
	if err = insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit timer stop: %w", err)
	}

	t.EndTime = &now
	t.ElapsedMinutes = elapsed
	t.IsRunning = false
	t.UpdatedAt = now
	return &t, nil
}

// ManualParams backfills an interval for one (reposition, area).
type ManualParams struct {
	RepositionID   string
	Area           models.Area
	UserID         string
	StartTime      string
	EndTime        string
	Date           string
	ElapsedMinutes int
	Now            time.Time
}

// SetManual upserts the single timer row with a manually entered interval.
func (r *TimerRepository) SetManual(ctx context.Context, params ManualParams, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manual timer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO reposition_timers
	(id, reposition_id, area, manual_start_time, manual_end_time, manual_date, elapsed_minutes, is_running, created_by, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
	ON CONFLICT (reposition_id, area) DO UPDATE SET
	    manual_start_time = EXCLUDED.manual_start_time,
	    manual_end_time = EXCLUDED.manual_end_time,
	    manual_date = EXCLUDED.manual_date,
	    elapsed_minutes = EXCLUDED.elapsed_minutes,
	    is_running = FALSE,
	    updated_at = EXCLUDED.updated_at`
	if _, err = tx.ExecContext(ctx, query,
		uuid.NewString(), params.RepositionID, params.Area,
		params.StartTime, params.EndTime, params.Date,
		params.ElapsedMinutes, params.UserID, params.Now); err != nil {
		return fmt.Errorf("upsert manual timer: %w", err)
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit manual timer: %w", err)
	}
	return nil
}

// FormatElapsed renders whole minutes as HH:MM:00.
func FormatElapsed(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}
