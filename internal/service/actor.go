package service

import "github.com/jn-uniformes/taller-api/internal/models"

// Actor identifies the authenticated caller of a workflow operation. The
// (UserID, Area) pair comes from verified token claims, never from payloads.
type Actor struct {
	UserID string
	Name   string
	Area   models.Area
}
