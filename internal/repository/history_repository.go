package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jn-uniformes/taller-api/internal/models"
)

// HistoryRepository reads the append-only reposition audit trail.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListByReposition returns the full trail, oldest first, with user names resolved.
func (r *HistoryRepository) ListByReposition(ctx context.Context, repositionID string) ([]models.HistoryEntry, error) {
	const query = `SELECT h.id, h.reposition_id, h.action, h.description, h.user_id,
       h.from_area, h.to_area, h.pieces, h.created_at, COALESCE(u.name, '') AS user_name
	FROM reposition_history h
	LEFT JOIN users u ON u.id = h.user_id
	WHERE h.reposition_id = $1
	ORDER BY h.created_at ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, repositionID); err != nil {
		return nil, fmt.Errorf("list reposition history: %w", err)
	}
	return entries, nil
}

// Append inserts a standalone entry outside any workflow transaction.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	return insertHistory(ctx, r.db, entry)
}

// insertHistory writes one trail entry using the given executor, so workflow
// repositories can append within their own transactions. Entries are never
// updated or deleted afterwards.
func insertHistory(ctx context.Context, q sqlx.ExtContext, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reposition_history
	(id, reposition_id, action, description, user_id, from_area, to_area, pieces, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := q.ExecContext(ctx, query,
		entry.ID,
		entry.RepositionID,
		entry.Action,
		entry.Description,
		entry.UserID,
		entry.FromArea,
		entry.ToArea,
		entry.Pieces,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}
