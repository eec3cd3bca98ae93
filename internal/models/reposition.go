package models

import "time"

// RepositionType distinguishes replacement requests from rework requests.
type RepositionType string

const (
	// TypeRepocision asks for replacement pieces cut from new material.
	TypeRepocision RepositionType = "repocision"
	// TypeReproceso asks for existing garments to be reworked.
	TypeReproceso RepositionType = "reproceso"
)

// RepositionStatus captures the workflow state of a reposition.
type RepositionStatus string

const (
	StatusPendiente  RepositionStatus = "pendiente"
	StatusAprobado   RepositionStatus = "aprobado"
	StatusRechazado  RepositionStatus = "rechazado"
	StatusCompletado RepositionStatus = "completado"
	StatusCancelado  RepositionStatus = "cancelado"
	StatusEliminado  RepositionStatus = "eliminado"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s RepositionStatus) IsTerminal() bool {
	switch s {
	case StatusCompletado, StatusCancelado, StatusEliminado:
		return true
	}
	return false
}

// Urgencia ranks how quickly a reposition must move through the floor.
type Urgencia string

const (
	UrgenciaUrgente     Urgencia = "urgente"
	UrgenciaIntermedio  Urgencia = "intermedio"
	UrgenciaPocoUrgente Urgencia = "poco_urgente"
)

// Reposition is a request to replace or rework garment pieces, moving
// between areas until completed, cancelled or deleted.
type Reposition struct {
	ID    string         `db:"id" json:"id"`
	Folio string         `db:"folio" json:"folio"`
	Type  RepositionType `db:"type" json:"type"`

	SolicitanteNombre string   `db:"solicitante_nombre" json:"solicitante_nombre"`
	ModeloPrenda      string   `db:"modelo_prenda" json:"modelo_prenda"`
	Tela              string   `db:"tela" json:"tela"`
	Color             string   `db:"color" json:"color"`
	TipoPieza         string   `db:"tipo_pieza" json:"tipo_pieza"`
	ConsumoTela       *float64 `db:"consumo_tela" json:"consumo_tela,omitempty"`

	Urgencia          Urgencia `db:"urgencia" json:"urgencia"`
	Observaciones     string   `db:"observaciones" json:"observaciones"`
	CausanteDano      string   `db:"causante_dano" json:"causante_dano"`
	DescripcionSuceso string   `db:"descripcion_suceso" json:"descripcion_suceso"`

	// Reproceso-only fields.
	VolverHacer          string `db:"volver_hacer" json:"volver_hacer,omitempty"`
	MaterialesImplicados string `db:"materiales_implicados" json:"materiales_implicados,omitempty"`

	SolicitanteArea Area             `db:"solicitante_area" json:"solicitante_area"`
	CurrentArea     Area             `db:"current_area" json:"current_area"`
	Status          RepositionStatus `db:"status" json:"status"`

	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ApprovedBy      *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	// HasReturnedToCreator flips once an accepted transfer brings the
	// reposition back to its solicitante area. From that point on the
	// creating area is required to log working time like any other area.
	HasReturnedToCreator bool `db:"has_returned_to_creator" json:"has_returned_to_creator"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Pieces   []Piece   `db:"-" json:"pieces,omitempty"`
	Products []Product `db:"-" json:"products,omitempty"`
}

// Piece is a requested garment piece, owned exclusively by one reposition.
type Piece struct {
	ID            string  `db:"id" json:"id"`
	RepositionID  string  `db:"reposition_id" json:"reposition_id"`
	Talla         string  `db:"talla" json:"talla"`
	Cantidad      int     `db:"cantidad" json:"cantidad"`
	FolioOriginal *string `db:"folio_original" json:"folio_original,omitempty"`
}

// Product is an optional per-garment breakdown when a single reposition
// covers several distinct garments.
type Product struct {
	ID           string   `db:"id" json:"id"`
	RepositionID string   `db:"reposition_id" json:"reposition_id"`
	ModeloPrenda string   `db:"modelo_prenda" json:"modelo_prenda"`
	Tela         string   `db:"tela" json:"tela"`
	Color        string   `db:"color" json:"color"`
	TipoPieza    string   `db:"tipo_pieza" json:"tipo_pieza"`
	ConsumoTela  *float64 `db:"consumo_tela" json:"consumo_tela,omitempty"`
}

// RepositionFilter constrains listing queries.
type RepositionFilter struct {
	Area           Area
	Status         []RepositionStatus
	Type           RepositionType
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
