package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
	"github.com/julianstephens/cadence/internal/validation"
)

type GoalAddCmd struct {
	Description string   `arg:"" optional:"" help:"Goal description. Opens a form when omitted."`
	Category    string   `help:"Goal category." short:"c"`
	Mechanisms  []string `name:"mechanism" help:"Mechanism as description:frequency[:start:end]. Repeat once per mechanism." short:"m"`
	Force       bool     `help:"Save even if the goal breaks validation rules."`
}

func (c *GoalAddCmd) Run(ctx *Context) error {
	if c.Description == "" {
		if err := c.runForm(); err != nil {
			return err
		}
	}

	bg := context.Background()
	userID, err := ctx.User(bg)
	if err != nil {
		return err
	}

	goal := models.Goal{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: strings.TrimSpace(c.Description),
		Category:    strings.TrimSpace(c.Category),
		CreatedAt:   time.Now(),
	}
	window := models.GenerationWindow{}
	if p, err := ctx.Store.GetLatestParticipation(bg, userID); err == nil {
		goal.ParticipationID = p.ID
		window = p.Window()
	} else if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	mechs := make([]models.Mechanism, 0, len(c.Mechanisms))
	for _, raw := range c.Mechanisms {
		m, err := ParseMechanism(raw)
		if err != nil {
			return err
		}
		m.ID = uuid.NewString()
		m.GoalID = goal.ID
		m.UserID = userID
		m.CreatedAt = time.Now()
		mechs = append(mechs, m)
	}

	result := validation.New().ValidateGoal(goal, mechs, window)
	if result.HasConflicts() {
		if !c.Force {
			return fmt.Errorf("%w\n%s", errors.ErrValidation, result.FormatReport())
		}
		ctx.println(result.FormatReport())
	}

	if err := ctx.Store.AddGoal(bg, goal); err != nil {
		return fmt.Errorf("failed to add goal: %w", err)
	}
	for _, m := range mechs {
		if err := ctx.Store.AddMechanism(bg, m); err != nil {
			return fmt.Errorf("failed to add mechanism %q: %w", m.Description, err)
		}
	}

	ctx.printf("Added goal: %s (%s) with %d mechanism(s)\n", goal.Description, goal.ID, len(mechs))
	return nil
}

func (c *GoalAddCmd) runForm() error {
	lines := strings.Join(c.Mechanisms, "\n")
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&c.Description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Category").
				Value(&c.Category),
			huh.NewText().
				Title("Mechanisms").
				Description(fmt.Sprintf("One per line as description:frequency (%d-%d)", constants.MinMechanismsPerGoal, constants.MaxMechanismsPerGoal)).
				Value(&lines).
				Validate(func(s string) error {
					for _, line := range splitLines(s) {
						if _, err := ParseMechanism(line); err != nil {
							return err
						}
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	c.Mechanisms = splitLines(lines)
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseMechanism reads description:frequency or description:frequency:start:end.
func ParseMechanism(raw string) (models.Mechanism, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return models.Mechanism{}, errors.Invalid("mechanism", raw, "expected description:frequency")
	}

	var m models.Mechanism
	if n := len(parts); n >= 4 && utils.ValidateDate(parts[n-2]) == nil && utils.ValidateDate(parts[n-1]) == nil {
		m.StartDate, m.EndDate = parts[n-2], parts[n-1]
		parts = parts[:n-2]
	}
	m.Frequency = constants.Frequency(strings.TrimSpace(parts[len(parts)-1]))
	m.Description = strings.TrimSpace(strings.Join(parts[:len(parts)-1], ":"))

	if err := validation.New().ValidateMechanism(m); err != nil {
		return models.Mechanism{}, err
	}
	return m, nil
}

type GoalListCmd struct{}

func (c *GoalListCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}

	goals := ctrl.Goals()
	if len(goals) == 0 {
		ctx.println("No goals found.")
		return nil
	}

	byGoal := make(map[string][]models.Mechanism)
	for _, m := range ctrl.Mechanisms() {
		byGoal[m.GoalID] = append(byGoal[m.GoalID], m)
	}

	v := validation.New()
	for _, g := range goals {
		p, err := ctrl.GetProgress(g.ID)
		if err != nil {
			return err
		}
		ctx.printf("%s  %-30s %3d%%  %s", g.ID, g.Description, p.Percentage, g.Status())
		if g.Category != "" {
			ctx.printf("  [%s]", g.Category)
		}
		ctx.println()
		if result := v.ValidateGoal(g, byGoal[g.ID], ctrl.Window()); result.HasConflicts() {
			for _, conflict := range result.Conflicts {
				ctx.printf("    ⚠ %s\n", conflict.Description)
			}
		}
	}
	return nil
}

type GoalCompleteCmd struct {
	ID string `arg:"" help:"Goal id."`
	As string `help:"Act as this user id (defaults to the current user)."`
}

func (c *GoalCompleteCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}
	goal, err := ctrl.CompleteGoal(bg, c.ID, actor(ctx, c.As))
	if err != nil {
		return err
	}
	ctx.printf("✓ Goal %q completed by %s\n", goal.Description, goal.CompletedBy)
	return nil
}

type GoalReopenCmd struct {
	ID string `arg:"" help:"Goal id."`
	As string `help:"Act as this user id (defaults to the current user)."`
}

func (c *GoalReopenCmd) Run(ctx *Context) error {
	bg := context.Background()
	ctrl, err := ctx.Controller(bg)
	if err != nil {
		return err
	}
	goal, err := ctrl.ReopenGoal(bg, c.ID, actor(ctx, c.As))
	if err != nil {
		return err
	}
	p, err := ctrl.GetProgress(goal.ID)
	if err != nil {
		return err
	}
	ctx.printf("Goal %q reopened at %d%%\n", goal.Description, p.Percentage)
	return nil
}

type GoalDeleteCmd struct {
	ID  string `arg:"" help:"Goal id."`
	Yes bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *GoalDeleteCmd) Run(ctx *Context) error {
	bg := context.Background()
	goal, err := ctx.Store.GetGoal(bg, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find goal: %w", err)
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q with all its mechanisms and history?", goal.Description)).
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.println("Cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Store.DeleteGoal(bg, c.ID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	ctx.printf("Deleted goal: %s\n", goal.Description)
	return nil
}

// actor returns the explicit --as user or the acting user.
func actor(ctx *Context, as string) string {
	if as != "" {
		return as
	}
	return ctx.UserID
}
