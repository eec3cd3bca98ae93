package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jn-uniformes/taller-api/internal/models"
)

// DocumentRepository persists attachment metadata; bytes live in blob storage.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create records the metadata row and the upload history entry together.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, entry *models.HistoryEntry) (err error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO reposition_documents
	(id, reposition_id, filename, original_name, size, uploaded_by, created_at)
	VALUES (:id, :reposition_id, :filename, :original_name, :size, :uploaded_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit document create: %w", err)
	}
	return nil
}

// GetByID fetches one document's metadata.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, reposition_id, filename, original_name, size, uploaded_by, created_at
	FROM reposition_documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByReposition returns attachment metadata, newest first.
func (r *DocumentRepository) ListByReposition(ctx context.Context, repositionID string) ([]models.Document, error) {
	const query = `SELECT id, reposition_id, filename, original_name, size, uploaded_by, created_at
	FROM reposition_documents WHERE reposition_id = $1 ORDER BY created_at DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, repositionID); err != nil {
		return nil, fmt.Errorf("list reposition documents: %w", err)
	}
	return docs, nil
}
