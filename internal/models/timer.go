package models

import "time"

// Timer records working time for one area on one reposition. A row is
// either a live interval (StartTime set, EndTime nil while running) or a
// manually entered one (ManualStartTime/ManualEndTime as HH:MM strings).
// At most one row exists per (reposition, area).
type Timer struct {
	ID           string `db:"id" json:"id"`
	RepositionID string `db:"reposition_id" json:"reposition_id"`
	Area         Area   `db:"area" json:"area"`

	StartTime *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime   *time.Time `db:"end_time" json:"end_time,omitempty"`

	ManualStartTime *string `db:"manual_start_time" json:"manual_start_time,omitempty"`
	ManualEndTime   *string `db:"manual_end_time" json:"manual_end_time,omitempty"`
	ManualDate      *string `db:"manual_date" json:"manual_date,omitempty"`

	ElapsedMinutes int  `db:"elapsed_minutes" json:"elapsed_minutes"`
	IsRunning      bool `db:"is_running" json:"is_running"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Bounded reports whether the timer covers a finished interval.
func (t *Timer) Bounded() bool {
	if t == nil {
		return false
	}
	if t.IsRunning {
		return false
	}
	if t.StartTime != nil && t.EndTime != nil {
		return true
	}
	return t.ManualStartTime != nil && t.ManualEndTime != nil
}
