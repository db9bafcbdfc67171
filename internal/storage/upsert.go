package storage

import (
	"github.com/julianstephens/cadence/internal/errors"
)

// UpsertOnConflict runs insert and, when the backend reports a uniqueness
// conflict, runs update instead. Any other error is returned as is.
func UpsertOnConflict(insert, update func() error) error {
	err := insert()
	if err == nil || !errors.Is(err, errors.ErrConflict) {
		return err
	}
	return update()
}

// IgnoreConflict treats a uniqueness conflict as success, for idempotent inserts.
func IgnoreConflict(err error) error {
	if errors.Is(err, errors.ErrConflict) {
		return nil
	}
	return err
}
