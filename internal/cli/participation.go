package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

type ParticipationSetCmd struct {
	Generation string `help:"Program generation label." default:"1"`
	Start      string `arg:"" help:"First day mechanisms run (YYYY-MM-DD)."`
	End        string `arg:"" help:"Last day mechanisms run (YYYY-MM-DD)."`
	New        bool   `help:"Start a new participation instead of updating the latest one."`
}

func (c *ParticipationSetCmd) Run(ctx *Context) error {
	if err := utils.ValidateDate(c.Start); err != nil {
		return errors.Invalid("start", c.Start, err.Error())
	}
	if err := utils.ValidateDate(c.End); err != nil {
		return errors.Invalid("end", c.End, err.Error())
	}
	if c.End < c.Start {
		return errors.Invalid("end", c.End, "must not be before start")
	}

	bg := context.Background()
	userID, err := ctx.User(bg)
	if err != nil {
		return err
	}

	p := models.Participation{
		ID:              uuid.NewString(),
		UserID:          userID,
		Generation:      c.Generation,
		MechanismsStart: c.Start,
		MechanismsEnd:   c.End,
		CreatedAt:       time.Now(),
	}
	if !c.New {
		latest, err := ctx.Store.GetLatestParticipation(bg, userID)
		switch {
		case err == nil:
			p.ID = latest.ID
			p.CreatedAt = latest.CreatedAt
		case !errors.Is(err, errors.ErrNotFound):
			return err
		}
	}

	if err := ctx.Store.SaveParticipation(bg, p); err != nil {
		return fmt.Errorf("failed to save participation: %w", err)
	}
	ctx.printf("Participation %s (generation %s): %s..%s\n", p.ID, p.Generation, p.MechanismsStart, p.MechanismsEnd)
	return nil
}

type ParticipationShowCmd struct{}

func (c *ParticipationShowCmd) Run(ctx *Context) error {
	bg := context.Background()
	userID, err := ctx.User(bg)
	if err != nil {
		return err
	}
	p, err := ctx.Store.GetLatestParticipation(bg, userID)
	if errors.Is(err, errors.ErrNotFound) {
		ctx.println("No participation set. Mechanisms need explicit start and end dates.")
		return nil
	}
	if err != nil {
		return err
	}
	start, err := utils.ParseDate(p.MechanismsStart)
	if err != nil {
		return err
	}
	end, err := utils.ParseDate(p.MechanismsEnd)
	if err != nil {
		return err
	}
	days := utils.DaysBetween(start, end)
	ctx.printf("Participation %s (generation %s)\n", p.ID, p.Generation)
	ctx.printf("  Window: %s..%s (%d days)\n", p.MechanismsStart, p.MechanismsEnd, days+1)
	return nil
}

type SupervisorAddCmd struct {
	SupervisorID string `arg:"" help:"User id of the supervisor."`
	For          string `help:"User id being supervised (defaults to the current user)."`
}

func (c *SupervisorAddCmd) Run(ctx *Context) error {
	bg := context.Background()
	userID := c.For
	if userID == "" {
		var err error
		if userID, err = ctx.User(bg); err != nil {
			return err
		}
	}
	if c.SupervisorID == userID {
		return errors.Invalid("supervisor", c.SupervisorID, "a user cannot supervise themselves")
	}
	if err := ctx.Store.AddSupervisor(bg, c.SupervisorID, userID); err != nil {
		return fmt.Errorf("failed to add supervisor: %w", err)
	}
	ctx.printf("✓ %s now supervises %s\n", c.SupervisorID, userID)
	return nil
}
