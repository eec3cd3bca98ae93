package models

import "time"

// History actions appended by workflow operations. Rows are immutable.
const (
	HistoryActionCreated             = "created"
	HistoryActionApproved            = "aprobado"
	HistoryActionRejected            = "rechazado"
	HistoryActionUpdated             = "updated"
	HistoryActionTransferRequested   = "transfer_requested"
	HistoryActionTransferAccepted    = "transfer_accepted"
	HistoryActionTransferRejected    = "transfer_rejected"
	HistoryActionCompleted           = "completed"
	HistoryActionCompletionRequested = "completion_requested"
	HistoryActionCanceled            = "canceled"
	HistoryActionDeleted             = "deleted"
	HistoryActionTimerStarted        = "timer_started"
	HistoryActionTimerStopped        = "timer_stopped"
	HistoryActionManualTimeSet       = "manual_time_set"
	HistoryActionDocumentUploaded    = "document_uploaded"
)

// HistoryEntry is an append-only audit fact about one reposition.
type HistoryEntry struct {
	ID           string    `db:"id" json:"id"`
	RepositionID string    `db:"reposition_id" json:"reposition_id"`
	Action       string    `db:"action" json:"action"`
	Description  string    `db:"description" json:"description"`
	UserID       string    `db:"user_id" json:"user_id"`
	FromArea     *Area     `db:"from_area" json:"from_area,omitempty"`
	ToArea       *Area     `db:"to_area" json:"to_area,omitempty"`
	Pieces       *int      `db:"pieces" json:"pieces,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	// Joined fields (not always populated).
	UserName string `db:"user_name" json:"user_name,omitempty"`
}
