package cli

import (
	"context"
	"fmt"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

type CalendarCmd struct {
	From string `help:"First date (YYYY-MM-DD). Defaults to this week's Monday."`
	To   string `help:"Last date (YYYY-MM-DD). Defaults to six days after --from."`
}

func (c *CalendarCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}

	from := c.From
	if from == "" {
		if from, err = utils.StartOfWeek(ctrl.Today()); err != nil {
			return err
		}
	}
	to := c.To
	if to == "" {
		if to, err = utils.AddDays(from, 6); err != nil {
			return errors.Invalid("from", from, err.Error())
		}
	}

	instances, err := ctrl.GetActivityInstances(from, to)
	if err != nil {
		return err
	}
	if ctrl.LocalOnly() {
		ctx.println("⚠ Running local-only: changes will not be saved.")
	}
	if len(instances) == 0 {
		ctx.printf("Nothing scheduled between %s and %s.\n", from, to)
		return nil
	}

	byDate := calendar.GroupByDate(instances)
	date := from
	for date <= to {
		if day := byDate[date]; len(day) > 0 {
			t, _ := utils.ParseDate(date)
			ctx.printf("%s %s\n", t.Format("Mon"), date)
			for _, inst := range day {
				ctx.printf("  %s\n", formatInstance(inst))
			}
		}
		if date, err = utils.AddDays(date, 1); err != nil {
			return err
		}
	}
	return nil
}

func formatInstance(inst models.ActivityInstance) string {
	mark := "○"
	if inst.IsCompleted {
		mark = "✓"
	}
	line := fmt.Sprintf("%s %s (%s)", mark, inst.MechanismDescription, inst.GoalDescription)
	if inst.IsException && inst.EffectiveDate != inst.OriginalDate {
		line += " ↷ from " + inst.OriginalDate
	}
	return line + "  [" + inst.ID + "]"
}

type MoveCmd struct {
	Instance string `arg:"" help:"Instance id as shown by the calendar command."`
	Date     string `arg:"" help:"New date (YYYY-MM-DD)."`
}

func (c *MoveCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}
	key, err := resolveInstance(ctrl, c.Instance)
	if err != nil {
		return err
	}
	outcome, err := ctrl.MoveActivity(bg, key, c.Date)
	if err != nil {
		return err
	}
	inst, err := ctrl.Instance(key)
	if err != nil {
		return err
	}
	ctx.printf("Moved %s to %s\n", inst.MechanismDescription, inst.EffectiveDate)
	reportOutcome(ctx, outcome)
	return nil
}

type DoneCmd struct {
	Instance string `arg:"" help:"Instance id as shown by the calendar command."`
}

func (c *DoneCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}
	key, err := resolveInstance(ctrl, c.Instance)
	if err != nil {
		return err
	}
	outcome, err := ctrl.ToggleCompletion(bg, key)
	if err != nil {
		return err
	}
	inst, err := ctrl.Instance(key)
	if err != nil {
		return err
	}
	state := "open"
	if inst.IsCompleted {
		state = "done"
	}
	ctx.printf("%s on %s is %s\n", inst.MechanismDescription, inst.EffectiveDate, state)

	p, err := ctrl.GetProgress(inst.GoalID)
	if err == nil {
		ctx.printf("Goal %q: %s\n", inst.GoalDescription, progressLine(p))
	}
	reportOutcome(ctx, outcome)
	return nil
}

func reportOutcome(ctx *Context, outcome controller.Outcome) {
	if outcome == controller.OutcomeLocalOnly {
		ctx.println("⚠ Running local-only: this change was not saved.")
	}
}

type ProgressCmd struct {
	ID string `arg:"" optional:"" help:"Goal or mechanism id. Lists every goal when omitted."`
}

func (c *ProgressCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}

	if c.ID != "" {
		p, err := ctrl.GetProgress(c.ID)
		if err != nil {
			return err
		}
		ctx.printf("%s: %s\n", c.ID, progressLine(p))
		if p.CurrentStreak > 0 {
			ctx.printf("  Streak: %d\n", p.CurrentStreak)
		}
		if p.LastCompletionDate != "" {
			ctx.printf("  Last completed: %s\n", p.LastCompletionDate)
		}
		if p.CompletionPredictionDays != nil {
			ctx.printf("  Projected to finish in %d day(s)\n", *p.CompletionPredictionDays)
		}
		return nil
	}

	goals := ctrl.Goals()
	if len(goals) == 0 {
		ctx.println("No goals found.")
		return nil
	}
	for _, g := range goals {
		p, err := ctrl.GetProgress(g.ID)
		if err != nil {
			return err
		}
		ctx.printf("%-30s %s\n", g.Description, progressLine(p))
	}
	return nil
}

func progressLine(p models.Progress) string {
	return fmt.Sprintf("%d/%d (%d%%)", p.TotalCompleted, p.TotalExpected, p.Percentage)
}
