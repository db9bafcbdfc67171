package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/utils"
	"github.com/julianstephens/cadence/internal/validation"
)

type MechanismAddCmd struct {
	GoalID      string `arg:"" help:"Goal id."`
	Description string `arg:"" help:"What to do."`
	Frequency   string `help:"How often: daily, 2x_week..5x_week, weekly, biweekly, monthly, yearly." short:"f" default:"daily"`
	Start       string `help:"First date (YYYY-MM-DD). Defaults to the participation start."`
	End         string `help:"Last date (YYYY-MM-DD). Defaults to the participation end."`
}

func (c *MechanismAddCmd) Run(ctx *Context) error {
	bg := context.Background()
	goal, err := ctx.Store.GetGoal(bg, c.GoalID)
	if err != nil {
		return fmt.Errorf("failed to find goal: %w", err)
	}

	m := models.Mechanism{
		ID:          uuid.NewString(),
		GoalID:      goal.ID,
		UserID:      goal.UserID,
		Description: strings.TrimSpace(c.Description),
		Frequency:   constants.Frequency(c.Frequency),
		StartDate:   c.Start,
		EndDate:     c.End,
		CreatedAt:   time.Now(),
	}
	if err := validation.New().ValidateMechanism(m); err != nil {
		return err
	}

	existing, err := ctx.Store.ReadMechanismsForUser(bg, goal.UserID, "")
	if err != nil {
		return fmt.Errorf("failed to read mechanisms: %w", err)
	}
	count := 0
	for _, other := range existing {
		if other.GoalID == goal.ID {
			count++
		}
	}
	if count >= constants.MaxMechanismsPerGoal {
		return errors.Invalid("goal", goal.ID, fmt.Sprintf("already has %d mechanisms", count))
	}

	if err := ctx.Store.AddMechanism(bg, m); err != nil {
		return fmt.Errorf("failed to add mechanism: %w", err)
	}
	ctx.printf("Added mechanism: %s (%s, %s)\n", m.Description, m.Frequency, m.ID)
	return nil
}

type MechanismListCmd struct {
	Goal string `help:"Only list mechanisms of this goal."`
}

func (c *MechanismListCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}

	found := false
	for _, m := range ctrl.Mechanisms() {
		if c.Goal != "" && m.GoalID != c.Goal {
			continue
		}
		found = true
		b := calendar.Bounds(m, ctrl.Window())
		p, err := ctrl.GetProgress(m.ID)
		if err != nil {
			return err
		}
		anchor, _ := utils.ParseDate(b.Start)
		ctx.printf("%s  %-28s %-9s %-20s %s..%s  %d/%d (%d%%)  goal: %s\n",
			m.ID, m.Description, m.Frequency, recurrence.Schedule(m.Frequency, anchor),
			orDash(b.Start), orDash(b.End),
			p.TotalCompleted, p.TotalExpected, p.Percentage, m.GoalDescription)
	}
	if !found {
		ctx.println("No mechanisms found.")
	}
	return nil
}

type MechanismDeleteCmd struct {
	ID string `arg:"" help:"Mechanism id."`
}

func (c *MechanismDeleteCmd) Run(ctx *Context) error {
	bg := context.Background()
	m, err := ctx.Store.GetMechanism(bg, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find mechanism: %w", err)
	}
	ctx.PerformAutomaticBackup()
	if err := ctx.Store.DeleteMechanism(bg, c.ID); err != nil {
		return fmt.Errorf("failed to delete mechanism: %w", err)
	}
	ctx.printf("Deleted mechanism: %s\n", m.Description)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
