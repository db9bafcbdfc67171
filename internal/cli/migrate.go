package cli

import "fmt"

type MigrateCmd struct {
	Status bool `help:"Only report the schema version."`
}

func (c *MigrateCmd) Run(ctx *Context) error {
	m, ok := ctx.Store.(Migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}

	status, err := m.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if c.Status {
		ctx.printf("Schema version %d of %d (%d pending)\n", status.Current, status.Latest, status.Pending())
		return nil
	}
	if status.Pending() > 0 {
		ctx.PerformAutomaticBackup()
	}

	count, err := m.Migrate(func(msg string) {
		ctx.println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.println("No migrations to apply. Database is up to date.")
	} else {
		ctx.printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
