package models

import (
	"time"

	"github.com/julianstephens/cadence/internal/constants"
)

// Mechanism is a recurring action a user commits to under a goal
type Mechanism struct {
	ID              string              `json:"id"`
	GoalID          string              `json:"goal_id"`
	UserID          string              `json:"user_id"`
	Description     string              `json:"description"`
	Frequency       constants.Frequency `json:"frequency"`
	StartDate       string              `json:"start_date,omitempty"` // YYYY-MM-DD format, empty = participation window start
	EndDate         string              `json:"end_date,omitempty"`   // YYYY-MM-DD format, empty = participation window end
	GoalDescription string              `json:"goal_description,omitempty"`
	GoalCategory    string              `json:"goal_category,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// GenerationWindow is the period a participation allots to mechanisms.
// It anchors default mechanism bounds and bounds progress evaluation.
type GenerationWindow struct {
	MechanismsStart string `json:"mechanisms_start"` // YYYY-MM-DD format
	MechanismsEnd   string `json:"mechanisms_end"`   // YYYY-MM-DD format
}

// IsZero reports whether the window carries no dates at all.
func (w GenerationWindow) IsZero() bool {
	return w.MechanismsStart == "" && w.MechanismsEnd == ""
}

// Participation is a user's enrollment in one generation/cohort
type Participation struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Generation      string    `json:"generation"`
	MechanismsStart string    `json:"mechanisms_start"` // YYYY-MM-DD format
	MechanismsEnd   string    `json:"mechanisms_end"`   // YYYY-MM-DD format
	CreatedAt       time.Time `json:"created_at"`
}

// Window returns the generation window of the participation.
func (p Participation) Window() GenerationWindow {
	return GenerationWindow{MechanismsStart: p.MechanismsStart, MechanismsEnd: p.MechanismsEnd}
}
