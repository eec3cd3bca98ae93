package models

import "time"

// TransferStatus tracks the accept/reject handshake of a handoff.
type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferAccepted TransferStatus = "accepted"
	TransferRejected TransferStatus = "rejected"
)

// Transfer is a proposed handoff of a reposition from one area to another.
// Immutable once processed.
type Transfer struct {
	ID           string         `db:"id" json:"id"`
	RepositionID string         `db:"reposition_id" json:"reposition_id"`
	FromArea     Area           `db:"from_area" json:"from_area"`
	ToArea       Area           `db:"to_area" json:"to_area"`
	Status       TransferStatus `db:"status" json:"status"`
	Notes        string         `db:"notes" json:"notes,omitempty"`

	// ConsumoTela records fabric consumed when the reposition leaves corte.
	ConsumoTela *float64 `db:"consumo_tela" json:"consumo_tela,omitempty"`

	CreatedBy       string     `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ProcessedBy     *string    `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`

	// Joined fields (not always populated).
	RequesterName string `db:"requester_name" json:"requester_name,omitempty"`
	ProcessorName string `db:"processor_name" json:"processor_name,omitempty"`
}

// CooldownStatus is the outcome of the transfer rate-limit check.
type CooldownStatus struct {
	Blocked          bool
	RemainingMinutes int
}
