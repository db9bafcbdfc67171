package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
	"github.com/julianstephens/cadence/internal/utils"
	"github.com/julianstephens/cadence/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	// warnOnly checks print a warning instead of failing the run.
	warnOnly bool
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
	run     func(context.Context, *Context) error
}

var doctorChecks = []check{
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Engine tables", needsDB: true, run: checkEngineTables},
	{name: "Participation window", needsDB: true, warnOnly: true, run: checkParticipation},
	{name: "Goal structure", needsDB: true, warnOnly: true, run: checkGoals},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Clock/timezone", run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	bg := context.Background()
	hasError := false

	dbReachable := true
	if err := ctx.Store.Load(); err != nil {
		ctx.printf("❌ Database reachable: FAIL\n   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.printf("✓ Database reachable: OK\n")
	}

	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			ctx.printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(bg, ctx)
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.printf("⚠ %s: WARNING\n   %v\n", c.name, err)
		default:
			ctx.printf("❌ %s: FAIL\n   Error: %v\n", c.name, err)
			hasError = true
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(_ context.Context, ctx *Context) error {
	m, ok := ctx.Store.(Migrator)
	if !ok {
		return nil
	}
	status, err := m.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if status.Current > status.Latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", status.Current, status.Latest)
	}
	if status.Pending() > 0 {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run `%s migrate`)",
			status.Current, status.Latest, constants.AppName)
	}
	return nil
}

// checkEngineTables reports tables whose absence puts the calendar in local-only mode.
func checkEngineTables(bg context.Context, ctx *Context) error {
	missing, err := ctx.Store.MissingTables(bg)
	if err != nil {
		return fmt.Errorf("failed to inspect tables: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %s; moves and completions will only be kept in memory",
			strings.Join(missing, ", "))
	}
	return nil
}

func checkParticipation(bg context.Context, ctx *Context) error {
	userID, err := ctx.User(bg)
	if err != nil {
		return err
	}
	window, err := ctx.Store.ReadGenerationWindow(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to read participation: %w", err)
	}
	if window.IsZero() {
		return fmt.Errorf("no participation set; mechanisms without dates will not be scheduled (run `%s participation set`)", constants.AppName)
	}
	if window.MechanismsEnd < window.MechanismsStart {
		return fmt.Errorf("participation window %s..%s ends before it starts", window.MechanismsStart, window.MechanismsEnd)
	}
	return nil
}

func checkGoals(bg context.Context, ctx *Context) error {
	userID, err := ctx.User(bg)
	if err != nil {
		return err
	}
	goals, err := ctx.Store.GetGoalsForUser(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to read goals: %w", err)
	}
	mechs, err := ctx.Store.ReadMechanismsForUser(bg, userID, "")
	if err != nil {
		return fmt.Errorf("failed to read mechanisms: %w", err)
	}
	window, err := ctx.Store.ReadGenerationWindow(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to read participation: %w", err)
	}

	byGoal := make(map[string][]models.Mechanism)
	for _, m := range mechs {
		byGoal[m.GoalID] = append(byGoal[m.GoalID], m)
	}

	v := validation.New()
	var reports []string
	for _, g := range goals {
		result := v.ValidateGoal(g, byGoal[g.ID], window)
		if result.HasConflicts() {
			reports = append(reports, result.FormatReport())
		}
	}
	if len(reports) > 0 {
		return fmt.Errorf("%s", strings.Join(reports, "\n"))
	}
	return nil
}

func checkBackupsPresent(_ context.Context, ctx *Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(bg context.Context, ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	settings, err := ctx.Store.GetSettings(bg)
	if err != nil {
		return nil
	}
	if !utils.ValidateTimezone(settings.Timezone) {
		return fmt.Errorf("unknown timezone %q in settings", settings.Timezone)
	}
	return nil
}
