package progress

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
)

// GateError explains why a goal could not change completion state.
// It unwraps to errors.ErrPreconditionNotMet or errors.ErrPermissionDenied.
type GateError struct {
	GoalID     string
	Percentage int
	Cause      error
}

func (e GateError) Error() string {
	if errors.Is(e.Cause, errors.ErrPreconditionNotMet) {
		return fmt.Sprintf("goal %s is at %d%%, it must reach 100%% before it can be completed", e.GoalID, e.Percentage)
	}
	return fmt.Sprintf("goal %s: only a supervisor of its owner can change its completion", e.GoalID)
}

func (e GateError) Unwrap() error { return e.Cause }

// Complete moves a goal from in_progress to completed. livePercentage must be
// the mechanism-derived value, never the forced 100 of a completed goal.
// The progress precondition is checked before the actor's role.
func Complete(goal models.Goal, livePercentage int, actorID string, isSupervisor bool, now time.Time) (models.Goal, error) {
	if goal.Completed {
		if !isSupervisor {
			return goal, GateError{GoalID: goal.ID, Percentage: 100, Cause: errors.ErrPermissionDenied}
		}
		return goal, nil
	}
	if livePercentage != 100 {
		return goal, GateError{GoalID: goal.ID, Percentage: livePercentage, Cause: errors.ErrPreconditionNotMet}
	}
	if !isSupervisor {
		return goal, GateError{GoalID: goal.ID, Percentage: livePercentage, Cause: errors.ErrPermissionDenied}
	}

	goal.Completed = true
	goal.CompletedBy = actorID
	completedAt := now
	goal.CompletedAt = &completedAt
	return goal, nil
}

// Reopen returns a completed goal to in_progress and clears the supervisor
// attribution, so its displayed percentage reverts to the live value.
func Reopen(goal models.Goal, isSupervisor bool) (models.Goal, error) {
	if !isSupervisor {
		return goal, GateError{GoalID: goal.ID, Cause: errors.ErrPermissionDenied}
	}
	goal.Completed = false
	goal.CompletedBy = ""
	goal.CompletedAt = nil
	return goal, nil
}
