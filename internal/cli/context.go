package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/keyring"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/migration"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/postgres"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

type Context struct {
	Store storage.Provider
	// UserID is the acting user. Empty means the install's own user from settings.
	UserID string
	// Today overrides the current date; used by tests.
	Today func() string
	Out   io.Writer
}

// Migrator is implemented by stores that carry an embedded schema.
type Migrator interface {
	MigrationStatus() (migration.Status, error)
	Migrate(logFn func(string)) (int, error)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// User resolves the acting user, falling back to the install's settings.
func (c *Context) User(ctx context.Context) (string, error) {
	if c.UserID != "" {
		return c.UserID, nil
	}
	settings, err := c.Store.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read settings: %w", err)
	}
	if settings.UserID == "" {
		return "", fmt.Errorf("no user configured, run `%s init` first", constants.AppName)
	}
	c.UserID = settings.UserID
	return c.UserID, nil
}

// Controller builds and loads a controller for the acting user's latest participation.
func (c *Context) Controller(ctx context.Context) (*controller.Controller, error) {
	userID, err := c.User(ctx)
	if err != nil {
		return nil, err
	}
	cfg := controller.Config{UserID: userID, Today: c.Today}
	if settings, err := c.Store.GetSettings(ctx); err == nil {
		cfg.Timezone = settings.Timezone
	}
	if p, err := c.Store.GetLatestParticipation(ctx, userID); err == nil {
		cfg.ParticipationID = p.ID
	} else if !errors.Is(err, errors.ErrNotFound) && !errors.Is(err, errors.ErrPersistenceUnavailable) {
		return nil, err
	}

	ctrl := controller.New(c.Store, cfg)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// PerformAutomaticBackup snapshots a SQLite store and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// IsPostgres reports whether config names a PostgreSQL database rather than a file.
func IsPostgres(config string) bool {
	return strings.HasPrefix(config, "postgres://") ||
		strings.HasPrefix(config, "postgresql://") ||
		strings.Contains(config, "host=")
}

// OpenStore picks a provider for config. An empty config falls back to a
// connection string from the environment or keyring, then to the default
// SQLite path.
func OpenStore(config string) (storage.Provider, error) {
	// Secrets from the keyring or environment may carry a password.
	fromSecret := false
	if config == "" {
		connStr, err := keyring.ResolveConnectionString()
		switch {
		case err == nil:
			config, fromSecret = connStr, true
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			config = constants.DefaultConfigPath
		default:
			return nil, err
		}
	}

	if IsPostgres(config) {
		if _, err := postgres.ValidateConnString(config); err != nil && !(fromSecret && errors.Is(err, postgres.ErrEmbeddedCredentials)) {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w\n  Use `%s keyring set`, %s, or a .pgpass file for the password",
					err, constants.AppName, keyring.EnvConnection)
			}
			return nil, err
		}
		return postgres.New(config), nil
	}

	path, err := ExpandHome(config)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(path), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// resolveInstance maps an instance id to its key. Ids are registered as
// instances are projected, so the whole schedule is projected on a miss.
func resolveInstance(ctrl *controller.Controller, id string) (calendar.InstanceKey, error) {
	if key, err := ctrl.Resolve(id); err == nil {
		return key, nil
	}
	span := scheduleSpan(ctrl)
	if !span.Empty() {
		if _, err := ctrl.GetActivityInstances(span.Start, span.End); err != nil {
			return calendar.InstanceKey{}, err
		}
	}
	return ctrl.Resolve(id)
}

// scheduleSpan covers every loaded mechanism's bounds.
func scheduleSpan(ctrl *controller.Controller) calendar.Range {
	var span calendar.Range
	window := ctrl.Window()
	for _, m := range ctrl.Mechanisms() {
		b := calendar.Bounds(m, window)
		if b.Empty() {
			continue
		}
		if span.Start == "" || b.Start < span.Start {
			span.Start = b.Start
		}
		if b.End > span.End {
			span.End = b.End
		}
	}
	return span
}
