package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jn-uniformes/taller-api/internal/models"
)

const repositionColumns = `id, folio, type, solicitante_nombre, modelo_prenda, tela, color,
       tipo_pieza, consumo_tela, urgencia, observaciones, causante_dano, descripcion_suceso,
       volver_hacer, materiales_implicados, solicitante_area, current_area, status,
       rejection_reason, approved_by, approved_at, completed_at, has_returned_to_creator,
       created_by, created_at, updated_at`

// RepositionRepository persists repositions and their owned pieces/products.
type RepositionRepository struct {
	db *sqlx.DB
}

// NewRepositionRepository constructs the repository.
func NewRepositionRepository(db *sqlx.DB) *RepositionRepository {
	return &RepositionRepository{db: db}
}

// nextFolio atomically increments the per-month counter and formats the
// human-readable code. Concurrent creates in the same month cannot collide.
func nextFolio(ctx context.Context, tx *sqlx.Tx, now time.Time) (string, error) {
	const query = `INSERT INTO folio_sequences (year, month, counter)
	VALUES ($1, $2, 1)
	ON CONFLICT (year, month) DO UPDATE SET counter = folio_sequences.counter + 1
	RETURNING counter`
	var counter int
	if err := tx.GetContext(ctx, &counter, query, now.Year(), int(now.Month())); err != nil {
		return "", fmt.Errorf("advance folio sequence: %w", err)
	}
	return fmt.Sprintf("JN-REQ-%02d-%02d-%03d", int(now.Month()), now.Year()%100, counter), nil
}

// Create inserts a reposition with its pieces and products and the opening
// history entry as a single transaction. The folio is assigned here.
func (r *RepositionRepository) Create(ctx context.Context, rep *models.Reposition, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create reposition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := rep.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.Status == "" {
		rep.Status = models.StatusPendiente
	}

	rep.Folio, err = nextFolio(ctx, tx, now)
	if err != nil {
		return err
	}

	const insertQuery = `INSERT INTO repositions
	(id, folio, type, solicitante_nombre, modelo_prenda, tela, color, tipo_pieza, consumo_tela,
	 urgencia, observaciones, causante_dano, descripcion_suceso, volver_hacer, materiales_implicados,
	 solicitante_area, current_area, status, has_returned_to_creator, created_by, created_at, updated_at)
	VALUES (:id, :folio, :type, :solicitante_nombre, :modelo_prenda, :tela, :color, :tipo_pieza, :consumo_tela,
	 :urgencia, :observaciones, :causante_dano, :descripcion_suceso, :volver_hacer, :materiales_implicados,
	 :solicitante_area, :current_area, :status, :has_returned_to_creator, :created_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, rep); err != nil {
		return fmt.Errorf("insert reposition: %w", err)
	}

	if err = insertChildren(ctx, tx, rep.ID, rep.Pieces, rep.Products); err != nil {
		return err
	}

	entry.RepositionID = rep.ID
	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create reposition: %w", err)
	}
	return nil
}

// GetByID fetches one reposition with its pieces and products loaded.
// Soft-deleted records are still returned.
func (r *RepositionRepository) GetByID(ctx context.Context, id string) (*models.Reposition, error) {
	query := fmt.Sprintf(`SELECT %s FROM repositions WHERE id = $1`, repositionColumns)
	var rep models.Reposition
	if err := r.db.GetContext(ctx, &rep, query, id); err != nil {
		return nil, err
	}

	const piecesQuery = `SELECT id, reposition_id, talla, cantidad, folio_original
	FROM reposition_pieces WHERE reposition_id = $1 ORDER BY talla`
	if err := r.db.SelectContext(ctx, &rep.Pieces, piecesQuery, id); err != nil {
		return nil, fmt.Errorf("load reposition pieces: %w", err)
	}

	const productsQuery = `SELECT id, reposition_id, modelo_prenda, tela, color, tipo_pieza, consumo_tela
	FROM reposition_products WHERE reposition_id = $1 ORDER BY modelo_prenda`
	if err := r.db.SelectContext(ctx, &rep.Products, productsQuery, id); err != nil {
		return nil, fmt.Errorf("load reposition products: %w", err)
	}

	return &rep, nil
}

// List returns repositions matching the filter, newest first. Soft-deleted
// records are excluded unless IncludeDeleted is set; area-scoped listings
// never include them.
func (r *RepositionRepository) List(ctx context.Context, filter models.RepositionFilter) ([]models.Reposition, *models.Pagination, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if filter.Area != "" {
		args = append(args, filter.Area)
		conditions = append(conditions, fmt.Sprintf("(current_area = $%d OR solicitante_area = $%d)", len(args), len(args)))
	}
	if filter.Area != "" || !filter.IncludeDeleted {
		args = append(args, models.StatusEliminado)
		conditions = append(conditions, fmt.Sprintf("status <> $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM repositions"+where, args...); err != nil {
		return nil, nil, fmt.Errorf("count repositions: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM repositions%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		repositionColumns, where, pageSize, (page-1)*pageSize)

	var reps []models.Reposition
	if err := r.db.SelectContext(ctx, &reps, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list repositions: %w", err)
	}

	return reps, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ResolveApproval applies the approve/reject decision. The update is guarded
// on the pending status, so a second racing decision loses with sql.ErrNoRows.
func (r *RepositionRepository) ResolveApproval(ctx context.Context, id string, action models.RepositionStatus, approverID string, rejectionReason *string, now time.Time, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE repositions
	SET status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4, updated_at = $3
	WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, query, action, approverID, now, rejectionReason, id, models.StatusPendiente)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if err = requireRowUpdated(result); err != nil {
		return err
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}
	return nil
}

// Complete closes an approved reposition. Guarded on status = aprobado.
func (r *RepositionRepository) Complete(ctx context.Context, id, approverID string, now time.Time, entry *models.HistoryEntry) error {
	const query = `UPDATE repositions
	SET status = $1, completed_at = $2, approved_by = $3, updated_at = $2
	WHERE id = $4 AND status = $5`
	return r.guardedStatusChange(ctx, entry, query, models.StatusCompletado, now, approverID, id, models.StatusAprobado)
}

// Cancel terminates an approved reposition. Guarded on status = aprobado.
func (r *RepositionRepository) Cancel(ctx context.Context, id string, reason string, now time.Time, entry *models.HistoryEntry) error {
	const query = `UPDATE repositions
	SET status = $1, completed_at = $2, rejection_reason = $3, updated_at = $2
	WHERE id = $4 AND status = $5`
	return r.guardedStatusChange(ctx, entry, query, models.StatusCancelado, now, reason, id, models.StatusAprobado)
}

// SoftDelete marks the reposition eliminated; it stays readable by ID but
// disappears from listings. Only non-terminal records can be deleted.
func (r *RepositionRepository) SoftDelete(ctx context.Context, id string, now time.Time, entry *models.HistoryEntry) error {
	const query = `UPDATE repositions
	SET status = $1, completed_at = $2, updated_at = $2
	WHERE id = $3 AND status IN ($4, $5, $6)`
	return r.guardedStatusChange(ctx, entry, query, models.StatusEliminado, now, id,
		models.StatusPendiente, models.StatusAprobado, models.StatusRechazado)
}

func (r *RepositionRepository) guardedStatusChange(ctx context.Context, entry *models.HistoryEntry, query string, args ...interface{}) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status change: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change reposition status: %w", err)
	}
	if err = requireRowUpdated(result); err != nil {
		return err
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status change: %w", err)
	}
	return nil
}

// EditParams carries the mutable fields replaced on resubmission.
type EditParams struct {
	ID                   string
	SolicitanteNombre    string
	ModeloPrenda         string
	Tela                 string
	Color                string
	TipoPieza            string
	ConsumoTela          *float64
	Urgencia             models.Urgencia
	Observaciones        string
	CausanteDano         string
	DescripcionSuceso    string
	VolverHacer          string
	MaterialesImplicados string
	Pieces               []models.Piece
	Products             []models.Product
}

// EditAndResubmit replaces the mutable fields, wholesale-replaces pieces and
// products, and resets the record to pendiente clearing the approval trail.
// All of it is one transaction guarded on status = rechazado: if the reset
// cannot be applied nothing else is either.
func (r *RepositionRepository) EditAndResubmit(ctx context.Context, params EditParams, now time.Time, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edit reposition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE repositions
	SET solicitante_nombre = $1, modelo_prenda = $2, tela = $3, color = $4, tipo_pieza = $5,
	    consumo_tela = $6, urgencia = $7, observaciones = $8, causante_dano = $9,
	    descripcion_suceso = $10, volver_hacer = $11, materiales_implicados = $12,
	    status = $13, approved_by = NULL, approved_at = NULL, rejection_reason = NULL,
	    updated_at = $14
	WHERE id = $15 AND status = $16`
	result, err := tx.ExecContext(ctx, query,
		params.SolicitanteNombre, params.ModeloPrenda, params.Tela, params.Color, params.TipoPieza,
		params.ConsumoTela, params.Urgencia, params.Observaciones, params.CausanteDano,
		params.DescripcionSuceso, params.VolverHacer, params.MaterialesImplicados,
		models.StatusPendiente, now, params.ID, models.StatusRechazado)
	if err != nil {
		return fmt.Errorf("reset reposition: %w", err)
	}
	if err = requireRowUpdated(result); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM reposition_pieces WHERE reposition_id = $1`, params.ID); err != nil {
		return fmt.Errorf("clear reposition pieces: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reposition_products WHERE reposition_id = $1`, params.ID); err != nil {
		return fmt.Errorf("clear reposition products: %w", err)
	}
	if err = insertChildren(ctx, tx, params.ID, params.Pieces, params.Products); err != nil {
		return err
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit edit reposition: %w", err)
	}
	return nil
}

func insertChildren(ctx context.Context, tx *sqlx.Tx, repositionID string, pieces []models.Piece, products []models.Product) error {
	const pieceQuery = `INSERT INTO reposition_pieces (id, reposition_id, talla, cantidad, folio_original)
	VALUES ($1, $2, $3, $4, $5)`
	for i := range pieces {
		if pieces[i].ID == "" {
			pieces[i].ID = uuid.NewString()
		}
		pieces[i].RepositionID = repositionID
		if _, err := tx.ExecContext(ctx, pieceQuery,
			pieces[i].ID, repositionID, pieces[i].Talla, pieces[i].Cantidad, pieces[i].FolioOriginal); err != nil {
			return fmt.Errorf("insert reposition piece: %w", err)
		}
	}

	const productQuery = `INSERT INTO reposition_products (id, reposition_id, modelo_prenda, tela, color, tipo_pieza, consumo_tela)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		products[i].RepositionID = repositionID
		if _, err := tx.ExecContext(ctx, productQuery,
			products[i].ID, repositionID, products[i].ModeloPrenda, products[i].Tela,
			products[i].Color, products[i].TipoPieza, products[i].ConsumoTela); err != nil {
			return fmt.Errorf("insert reposition product: %w", err)
		}
	}
	return nil
}

// requireRowUpdated translates a zero-row guarded update into sql.ErrNoRows
// so callers can map it to a stale-state conflict.
func requireRowUpdated(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
