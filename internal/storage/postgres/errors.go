package postgres

import (
	"database/sql"
	"fmt"

	pq "github.com/lib/pq"

	"github.com/julianstephens/cadence/internal/errors"
)

const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

// mapError translates driver errors into the engine's sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", errors.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %v", errors.ErrConflict, err)
		case codeUndefinedTable:
			return fmt.Errorf("%w: %v", errors.ErrPersistenceUnavailable, err)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
