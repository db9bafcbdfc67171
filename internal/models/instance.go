package models

// ActivityInstance is one expected occurrence of a mechanism, ready for the calendar.
// It is derived on demand and never persisted.
type ActivityInstance struct {
	ID                   string `json:"id"`
	MechanismID          string `json:"mechanism_id"`
	MechanismDescription string `json:"mechanism_description"`
	GoalID               string `json:"goal_id"`
	GoalDescription      string `json:"goal_description"`
	OriginalDate         string `json:"original_date"`  // YYYY-MM-DD format
	EffectiveDate        string `json:"effective_date"` // YYYY-MM-DD format
	IsException          bool   `json:"is_exception"`
	IsCompleted          bool   `json:"is_completed"`
}

// Progress aggregates expected occurrences and completions for a mechanism or goal
type Progress struct {
	TotalExpected            int    `json:"total_expected"`
	TotalCompleted           int    `json:"total_completed"`
	Percentage               int    `json:"percentage"`
	CurrentStreak            int    `json:"current_streak"`
	LastCompletionDate       string `json:"last_completion_date,omitempty"`
	CompletionPredictionDays *int   `json:"completion_prediction_days,omitempty"`
}
