package dto

import "github.com/jn-uniformes/taller-api/internal/models"

// TrackingStepStatus classifies one area inside the tracking view.
type TrackingStepStatus string

const (
	StepCompleted TrackingStepStatus = "completed"
	StepCurrent   TrackingStepStatus = "current"
	StepPending   TrackingStepStatus = "pending"
)

// TrackingStep is the per-area progress row of the tracking view.
type TrackingStep struct {
	Area           models.Area        `json:"area"`
	Status         TrackingStepStatus `json:"status"`
	ElapsedMinutes int                `json:"elapsed_minutes"`
}

// TrackingView is the assembled read model for one reposition: the
// canonical step list plus transfers and the full history log.
type TrackingView struct {
	Reposition   *models.Reposition    `json:"reposition"`
	Steps        []TrackingStep        `json:"steps"`
	Progress     int                   `json:"progress"`
	TotalMinutes int                   `json:"total_minutes"`
	Transfers    []models.Transfer     `json:"transfers"`
	History      []models.HistoryEntry `json:"history"`
}
