package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/metrics"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/progress"
)

// GetProgress returns progress for a mechanism or goal id.
func (c *Controller) GetProgress(id string) (models.Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.mechanisms[id]; ok {
		return c.mechanismProgressLocked(id), nil
	}
	if g, ok := c.goals[id]; ok {
		return c.goalProgressLocked(g), nil
	}
	return models.Progress{}, errors.Invalid("id", id, "unknown goal or mechanism")
}

func (c *Controller) mechanismProgressLocked(id string) models.Progress {
	return progress.CalculateMechanismProgress(progress.Input{
		Mechanism:     c.mechanisms[id],
		Participation: c.window,
		Window:        calendar.Range{Start: c.window.MechanismsStart, End: c.window.MechanismsEnd},
		Exceptions:    c.exceptions,
		Completions:   c.completions,
		Today:         c.cfg.Today(),
	})
}

func (c *Controller) goalMechanismsLocked(goalID string) []models.Progress {
	var mechs []models.Progress
	for _, id := range c.order {
		if c.mechanisms[id].GoalID == goalID {
			mechs = append(mechs, c.mechanismProgressLocked(id))
		}
	}
	return mechs
}

func (c *Controller) goalProgressLocked(g models.Goal) models.Progress {
	p := progress.CalculateGoalProgress(g, c.goalMechanismsLocked(g.ID))
	metrics.GoalProgress.WithLabelValues(g.ID).Set(float64(p.Percentage))
	return p
}

// livePercentageLocked is the floored, mechanism-derived value the gate
// checks. Any supervisor completion on the goal is ignored.
func (c *Controller) livePercentageLocked(g models.Goal) int {
	return progress.GatePercentage(c.goalMechanismsLocked(g.ID))
}

func (c *Controller) publishProgress(mechanismID string) {
	c.mu.Lock()
	hook := c.OnProgress
	m, ok := c.mechanisms[mechanismID]
	if hook == nil || !ok {
		c.mu.Unlock()
		return
	}
	update := ProgressUpdate{
		MechanismID: mechanismID,
		Mechanism:   c.mechanismProgressLocked(mechanismID),
		GoalID:      m.GoalID,
	}
	if g, ok := c.goals[m.GoalID]; ok {
		update.Goal = c.goalProgressLocked(g)
	}
	c.mu.Unlock()

	hook(update)
}

func (c *Controller) publishGoal(g models.Goal) {
	c.mu.Lock()
	hook := c.OnProgress
	if hook == nil {
		c.mu.Unlock()
		return
	}
	update := ProgressUpdate{GoalID: g.ID, Goal: c.goalProgressLocked(g)}
	c.mu.Unlock()

	hook(update)
}

// CompleteGoal marks a goal completed on behalf of actorID. The goal must be
// at 100% live progress and actorID must supervise the goal's owner.
func (c *Controller) CompleteGoal(ctx context.Context, goalID, actorID string) (models.Goal, error) {
	c.mu.Lock()
	goal, ok := c.goals[goalID]
	live := 0
	if ok {
		live = c.livePercentageLocked(goal)
	}
	c.mu.Unlock()
	if !ok {
		return models.Goal{}, errors.Invalid("goal", goalID, "unknown goal")
	}

	isSupervisor := false
	if live == 100 || goal.Completed {
		var err error
		if isSupervisor, err = c.isSupervisor(ctx, actorID, goal.UserID); err != nil {
			return goal, err
		}
	}

	updated, err := progress.Complete(goal, live, actorID, isSupervisor, time.Now())
	if err != nil {
		metrics.Mutations.WithLabelValues("complete_goal", "rejected").Inc()
		return goal, err
	}
	return c.saveGoal(ctx, "complete_goal", updated)
}

// ReopenGoal returns a completed goal to in progress. actorID must supervise
// the goal's owner.
func (c *Controller) ReopenGoal(ctx context.Context, goalID, actorID string) (models.Goal, error) {
	c.mu.Lock()
	goal, ok := c.goals[goalID]
	c.mu.Unlock()
	if !ok {
		return models.Goal{}, errors.Invalid("goal", goalID, "unknown goal")
	}

	isSupervisor, err := c.isSupervisor(ctx, actorID, goal.UserID)
	if err != nil {
		return goal, err
	}
	updated, err := progress.Reopen(goal, isSupervisor)
	if err != nil {
		metrics.Mutations.WithLabelValues("reopen_goal", "rejected").Inc()
		return goal, err
	}
	return c.saveGoal(ctx, "reopen_goal", updated)
}

func (c *Controller) isSupervisor(ctx context.Context, actorID, ownerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	ok, err := c.store.IsSupervisor(ctx, actorID, ownerID)
	if err != nil {
		return false, fmt.Errorf("checking supervisor role: %w", err)
	}
	return ok, nil
}

func (c *Controller) saveGoal(ctx context.Context, op string, goal models.Goal) (models.Goal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	err := c.store.UpdateGoal(ctx, goal)
	metrics.ObserveStore(op, started)
	if err != nil {
		metrics.Mutations.WithLabelValues(op, string(OutcomeRolledBack)).Inc()
		logger.Warn("Failed to save goal", "goal", goal.ID, "op", op, "error", err)
		return goal, fmt.Errorf("saving goal %s: %w", goal.ID, err)
	}

	c.mu.Lock()
	c.goals[goal.ID] = goal
	c.mu.Unlock()

	metrics.Mutations.WithLabelValues(op, string(OutcomeConfirmed)).Inc()
	logger.Info("Goal state changed", "goal", goal.ID, "status", goal.Status())
	c.publishGoal(goal)
	return goal, nil
}
