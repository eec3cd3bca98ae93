package dto

import "github.com/jn-uniformes/taller-api/internal/models"

// RequestTransferRequest proposes a handoff to another area. FromArea is
// always the caller's own area, never client supplied.
type RequestTransferRequest struct {
	ToArea      models.Area `json:"to_area" validate:"required"`
	Notes       string      `json:"notes"`
	ConsumoTela *float64    `json:"consumo_tela,omitempty"`
}

// ProcessTransferRequest resolves a pending handoff.
type ProcessTransferRequest struct {
	Action models.TransferStatus `json:"action" validate:"required,oneof=accepted rejected"`
	Reason string                `json:"reason"`
}
