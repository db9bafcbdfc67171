package main

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"SQLite path or PostgreSQL connection string. Defaults to CADENCE_DB_CONNECTION, the OS keyring, then ~/.config/cadence/cadence.db. PostgreSQL credentials must not be embedded." env:"CADENCE_CONFIG"`
	Debug   bool   `help:"Log debug output to stderr."`
	User    string `help:"Act as this user id instead of the install's own user." env:"CADENCE_USER"`

	Init     cli.InitCmd     `cmd:"" help:"Initialize cadence storage."`
	Migrate  cli.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive calendar." default:"1"`
	Mcp      cli.McpCmd      `cmd:"" help:"Serve the calendar as MCP tools over stdio."`
	Calendar cli.CalendarCmd `cmd:"" help:"Show scheduled activities for a date range."`
	Move     cli.MoveCmd     `cmd:"" help:"Move an activity to another date."`
	Done     cli.DoneCmd     `cmd:"" help:"Toggle an activity's completion."`
	Progress cli.ProgressCmd `cmd:"" help:"Show goal or mechanism progress."`
	Goal     struct {
		Add      cli.GoalAddCmd      `cmd:"" help:"Add a goal with its mechanisms."`
		List     cli.GoalListCmd     `cmd:"" help:"List goals with progress."`
		Complete cli.GoalCompleteCmd `cmd:"" help:"Mark a goal completed (supervisors only)."`
		Reopen   cli.GoalReopenCmd   `cmd:"" help:"Reopen a completed goal (supervisors only)."`
		Delete   cli.GoalDeleteCmd   `cmd:"" help:"Delete a goal and its history."`
	} `cmd:"" help:"Manage goals."`
	Mechanism struct {
		Add    cli.MechanismAddCmd    `cmd:"" help:"Add a mechanism to a goal."`
		List   cli.MechanismListCmd   `cmd:"" help:"List mechanisms."`
		Delete cli.MechanismDeleteCmd `cmd:"" help:"Delete a mechanism and its history."`
	} `cmd:"" help:"Manage mechanisms."`
	Participation struct {
		Set  cli.ParticipationSetCmd  `cmd:"" help:"Set the generation window."`
		Show cli.ParticipationShowCmd `cmd:"" help:"Show the current generation window." default:"1"`
	} `cmd:"" help:"Manage program participation."`
	Supervisor struct {
		Add cli.SupervisorAddCmd `cmd:"" help:"Grant a user the supervisor role."`
	} `cmd:"" help:"Manage supervisors."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store a connection string in the OS keyring."`
		Get    cli.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
}

// noLoad lists commands that open storage themselves or do not need it.
var noLoad = map[string]bool{"init": true, "doctor": true, "keyring": true}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Recurring goal mechanisms with a progress-gated calendar"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: logDir(CLI.Config)}); err != nil {
		errors.Fatal(err)
	}

	store, err := cli.OpenStore(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	command := strings.Fields(ctx.Command())[0]
	if !noLoad[command] {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	appCtx := &cli.Context{Store: store, UserID: CLI.User}
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}

// logDir keeps logs next to a SQLite database and under the default config
// directory otherwise.
func logDir(config string) string {
	dir := filepath.Dir(constants.DefaultConfigPath)
	if config != "" && !cli.IsPostgres(config) {
		dir = filepath.Dir(config)
	}
	expanded, err := cli.ExpandHome(dir)
	if err != nil {
		return "."
	}
	return expanded
}
