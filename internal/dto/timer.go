package dto

// ManualTimerRequest backfills a working-time interval for the caller's
// area. Times are HH:MM strings in the business timezone; an end before
// the start is interpreted as crossing midnight.
type ManualTimerRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"`
}
