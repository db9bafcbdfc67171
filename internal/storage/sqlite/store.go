package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/migration"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/migrations"
)

var _ storage.Provider = (*Store)(nil)

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Seed the acting user and timezone on first run
	ctx := context.Background()
	settings, err := s.GetSettings(ctx)
	if err != nil || settings.UserID == "" {
		if settings.UserID == "" {
			settings.UserID = uuid.NewString()
		}
		if settings.Timezone == "" {
			settings.Timezone = constants.DefaultTimezone
		}
		if err := s.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	return s.newRunner().ValidateVersion()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// tableExists checks if a table exists in the SQLite database.
// The check is case-insensitive to match SQLite's behavior.
func (s *Store) tableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", tableName)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) MissingTables(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range storage.EngineTables {
		ok, err := s.tableExists(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("checking table %s: %w", table, err)
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

func (s *Store) newRunner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		// The embedded directory is fixed at build time
		panic(fmt.Sprintf("sqlite migrations missing from binary: %v", err))
	}
	return migration.NewRunner(s.db, subFS, migration.DialectSQLite)
}

func (s *Store) runMigrations() error {
	_, err := s.newRunner().ApplyMigrations(func(msg string) {
		logger.Info(msg)
	})
	return err
}

// MigrationStatus reports the schema version against the embedded migrations.
func (s *Store) MigrationStatus() (migration.Status, error) {
	return s.newRunner().Status()
}

// Migrate applies pending migrations, reporting progress through logFn.
func (s *Store) Migrate(logFn func(string)) (int, error) {
	return s.newRunner().ApplyMigrations(logFn)
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection.
// Returns nil if the database has not been initialized or loaded.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, mapError(err)
	}
	defer rows.Close()

	settings := models.Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingUserID:
			settings.UserID = value
		case constants.SettingTimezone:
			settings.Timezone = value
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return mapError(err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, constants.SettingUserID, settings.UserID); err != nil {
		return mapError(err)
	}
	if _, err := stmt.ExecContext(ctx, constants.SettingTimezone, settings.Timezone); err != nil {
		return mapError(err)
	}

	return tx.Commit()
}
