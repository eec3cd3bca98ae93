package models

import "time"

// Document records metadata for a file attached to a reposition. The bytes
// themselves live in blob storage keyed by (reposition, filename).
type Document struct {
	ID           string    `db:"id" json:"id"`
	RepositionID string    `db:"reposition_id" json:"reposition_id"`
	Filename     string    `db:"filename" json:"filename"`
	OriginalName string    `db:"original_name" json:"original_name"`
	Size         int64     `db:"size" json:"size"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
