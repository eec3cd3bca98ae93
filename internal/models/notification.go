package models

import "time"

// Notification types emitted by the workflow.
const (
	NotificationRepositionCreated   = "reposition_created"
	NotificationRepositionApproved  = "reposition_approved"
	NotificationRepositionRejected  = "reposition_rejected"
	NotificationRepositionUpdated   = "reposition_updated"
	NotificationTransferRequested   = "transfer_requested"
	NotificationTransferAccepted    = "transfer_accepted"
	NotificationTransferRejected    = "transfer_rejected"
	NotificationRepositionCompleted = "reposition_completed"
	NotificationCompletionRequested = "completion_requested"
	NotificationRepositionCanceled  = "reposition_canceled"
	NotificationRepositionDeleted   = "reposition_deleted"
)

// Notification is a persisted message for one user about one reposition.
// Only the recipient mutates the read flag.
type Notification struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Type         string    `db:"type" json:"type"`
	Title        string    `db:"title" json:"title"`
	Message      string    `db:"message" json:"message"`
	RepositionID *string   `db:"reposition_id" json:"reposition_id,omitempty"`
	Read         bool      `db:"read" json:"read"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
