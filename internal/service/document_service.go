package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jn-uniformes/taller-api/internal/models"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/storage"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Document, error)
}

// DocumentService stores reposition attachments and hands out short-lived
// signed download links so file access never needs a session.
type DocumentService struct {
	documents   documentStore
	repositions transferRepositionStore
	storage     *storage.LocalStorage
	signer      *storage.SignedURLSigner
	maxSize     int64
	logger      *zap.Logger
	now         func() time.Time
}

// DocumentOption customises the service.
type DocumentOption func(*DocumentService)

// WithDocumentLogger overrides the default no-op logger.
func WithDocumentLogger(logger *zap.Logger) DocumentOption {
	return func(s *DocumentService) { s.logger = logger }
}

// WithDocumentClock overrides the time source, mainly for tests.
func WithDocumentClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) { s.now = now }
}

// NewDocumentService constructs the service.
func NewDocumentService(documents documentStore, repositions transferRepositionStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, maxSize int64, opts ...DocumentOption) *DocumentService {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	s := &DocumentService{
		documents:   documents,
		repositions: repositions,
		storage:     store,
		signer:      signer,
		maxSize:     maxSize,
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload attaches a file to a reposition. Closed repositions no longer
// accept attachments.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, repositionID, originalName string, size int64, r io.Reader) (*models.Document, error) {
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	originalName = filepath.Base(strings.TrimSpace(originalName))
	if originalName == "" || originalName == "." {
		return nil, appErrors.Clone(appErrors.ErrValidation, "filename is required")
	}

	rep, err := s.repositions.GetByID(ctx, repositionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reposition")
	}
	if rep.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "closed repositions do not accept attachments")
	}

	docID := uuid.NewString()
	stored := filepath.Join(repositionID, docID+filepath.Ext(originalName))
	if _, err := s.storage.SaveStream(stored, io.LimitReader(r, s.maxSize)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	now := s.now()
	doc := &models.Document{
		ID:           docID,
		RepositionID: repositionID,
		Filename:     stored,
		OriginalName: originalName,
		Size:         size,
		UploadedBy:   actor.UserID,
		CreatedAt:    now,
	}
	entry := &models.HistoryEntry{
		RepositionID: repositionID,
		Action:       models.HistoryActionDocumentUploaded,
		Description:  fmt.Sprintf("Document %s uploaded by %s (%s)", originalName, actor.Name, actor.Area),
		UserID:       actor.UserID,
		CreatedAt:    now,
	}
	if err := s.documents.Create(ctx, doc, entry); err != nil {
		// Don't leave the orphaned blob behind.
		if delErr := s.storage.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned document file", zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document")
	}
	return doc, nil
}

// ListByReposition returns the attachments of one reposition.
func (s *DocumentService) ListByReposition(ctx context.Context, repositionID string) ([]models.Document, error) {
	documents, err := s.documents.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return documents, nil
}

// SignedLink issues a short-lived token to download one attachment.
func (s *DocumentService) SignedLink(ctx context.Context, documentID string) (token string, expiresAt time.Time, err error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	token, expiresAt, err = s.signer.Generate(doc.ID, doc.Filename)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign link")
	}
	return token, expiresAt, nil
}

// Download validates a signed token and opens the file it refers to.
func (s *DocumentService) Download(ctx context.Context, token string) (*models.Document, *os.File, error) {
	documentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Filename != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link does not match the document")
	}
	file, err := s.storage.Open(doc.Filename)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return doc, file, nil
}
