package dto

import "github.com/jn-uniformes/taller-api/internal/models"

// PiecePayload is one requested piece inside a create/edit request.
type PiecePayload struct {
	Talla         string  `json:"talla" validate:"required"`
	Cantidad      int     `json:"cantidad" validate:"required,min=1"`
	FolioOriginal *string `json:"folio_original,omitempty"`
}

// ProductPayload breaks a reposition down per garment.
type ProductPayload struct {
	ModeloPrenda string   `json:"modelo_prenda" validate:"required"`
	Tela         string   `json:"tela" validate:"required"`
	Color        string   `json:"color" validate:"required"`
	TipoPieza    string   `json:"tipo_pieza" validate:"required"`
	ConsumoTela  *float64 `json:"consumo_tela,omitempty"`
}

// CreateRepositionRequest is the payload to open a new reposition.
type CreateRepositionRequest struct {
	Type models.RepositionType `json:"type" validate:"required,oneof=repocision reproceso"`

	SolicitanteNombre string          `json:"solicitante_nombre" validate:"required"`
	ModeloPrenda      string          `json:"modelo_prenda"`
	Tela              string          `json:"tela"`
	Color             string          `json:"color"`
	TipoPieza         string          `json:"tipo_pieza"`
	ConsumoTela       *float64        `json:"consumo_tela,omitempty"`
	Urgencia          models.Urgencia `json:"urgencia" validate:"required,oneof=urgente intermedio poco_urgente"`
	Observaciones     string          `json:"observaciones"`
	CausanteDano      string          `json:"causante_dano"`
	DescripcionSuceso string          `json:"descripcion_suceso"`

	// Reproceso-only fields.
	VolverHacer          string `json:"volver_hacer"`
	MaterialesImplicados string `json:"materiales_implicados"`

	Pieces   []PiecePayload   `json:"pieces"`
	Products []ProductPayload `json:"products"`
}

// EditRepositionRequest resubmits a rejected reposition. Pieces and
// products replace the previous sets wholesale.
type EditRepositionRequest struct {
	SolicitanteNombre string          `json:"solicitante_nombre"`
	ModeloPrenda      string          `json:"modelo_prenda"`
	Tela              string          `json:"tela"`
	Color             string          `json:"color"`
	TipoPieza         string          `json:"tipo_pieza"`
	ConsumoTela       *float64        `json:"consumo_tela,omitempty"`
	Urgencia          models.Urgencia `json:"urgencia"`
	Observaciones     string          `json:"observaciones"`
	CausanteDano      string          `json:"causante_dano"`
	DescripcionSuceso string          `json:"descripcion_suceso"`

	VolverHacer          string `json:"volver_hacer"`
	MaterialesImplicados string `json:"materiales_implicados"`

	Pieces   []PiecePayload   `json:"pieces"`
	Products []ProductPayload `json:"products"`
}

// ApproveRepositionRequest resolves a pending reposition.
type ApproveRepositionRequest struct {
	Action models.RepositionStatus `json:"action" validate:"required,oneof=aprobado rechazado"`
	Notes  string                  `json:"notes"`
}

// CompleteRepositionRequest closes (or asks to close) a reposition.
type CompleteRepositionRequest struct {
	Notes string `json:"notes"`
}

// CancelRepositionRequest terminates a reposition with a mandatory reason.
type CancelRepositionRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

// RepositionQuery filters listing endpoints.
type RepositionQuery struct {
	Area           models.Area
	Status         []models.RepositionStatus
	Type           models.RepositionType
	IncludeDeleted bool
	Page           int
	PageSize       int
}
