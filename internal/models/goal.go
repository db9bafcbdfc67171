package models

import (
	"time"

	"github.com/julianstephens/cadence/internal/constants"
)

// Goal is a category-scoped objective containing 4–6 mechanisms
type Goal struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ParticipationID string     `json:"participation_id,omitempty"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Completed       bool       `json:"completed"`
	CompletedBy     string     `json:"completed_by,omitempty"` // supervisor who closed the goal
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Status maps the completed flag onto the gate's state names.
func (g Goal) Status() constants.GoalStatus {
	if g.Completed {
		return constants.GoalCompleted
	}
	return constants.GoalInProgress
}
