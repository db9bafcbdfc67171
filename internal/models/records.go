package models

import "time"

// ScheduleException moves one occurrence of a mechanism away from its rule-derived date.
// There is at most one exception per (MechanismID, OriginalDate).
type ScheduleException struct {
	MechanismID  string    `json:"mechanism_id"`
	UserID       string    `json:"user_id"`
	OriginalDate string    `json:"original_date"` // YYYY-MM-DD format
	MovedToDate  string    `json:"moved_to_date"` // YYYY-MM-DD format
	UpdatedAt    time.Time `json:"updated_at"`
}

// Completion records that the occurrence landing on CompletedDate was performed.
// CompletedDate is always the effective (post-exception) date.
type Completion struct {
	MechanismID   string    `json:"mechanism_id"`
	UserID        string    `json:"user_id"`
	CompletedDate string    `json:"completed_date"` // YYYY-MM-DD format
	CreatedAt     time.Time `json:"created_at"`
}
