package sqlite

import (
	"context"
	"time"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

func (s *Store) UpsertScheduleException(ctx context.Context, ex models.ScheduleException) error {
	if ex.UpdatedAt.IsZero() {
		ex.UpdatedAt = time.Now()
	}
	insert := func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO schedule_exceptions (mechanism_id, user_id, original_date, moved_to_date, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			ex.MechanismID, ex.UserID, ex.OriginalDate, ex.MovedToDate, formatTime(ex.UpdatedAt),
		)
		return mapError(err)
	}
	update := func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE schedule_exceptions
			SET moved_to_date = ?, user_id = ?, updated_at = ?
			WHERE mechanism_id = ? AND original_date = ?`,
			ex.MovedToDate, ex.UserID, formatTime(ex.UpdatedAt), ex.MechanismID, ex.OriginalDate,
		)
		return mapError(err)
	}
	return storage.UpsertOnConflict(insert, update)
}

func (s *Store) ReadScheduleExceptions(ctx context.Context, userID string) ([]models.ScheduleException, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mechanism_id, user_id, original_date, moved_to_date, updated_at
		FROM schedule_exceptions
		WHERE user_id = ?
		ORDER BY mechanism_id, original_date`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.ScheduleException
	for rows.Next() {
		var (
			ex        models.ScheduleException
			updatedAt string
		)
		if err := rows.Scan(&ex.MechanismID, &ex.UserID, &ex.OriginalDate, &ex.MovedToDate, &updatedAt); err != nil {
			return nil, err
		}
		ex.UpdatedAt = parseTime(updatedAt)
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *Store) CreateCompletion(ctx context.Context, c models.Completion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (mechanism_id, user_id, completed_date, created_at)
		VALUES (?, ?, ?, ?)`,
		c.MechanismID, c.UserID, c.CompletedDate, formatTime(c.CreatedAt),
	)
	return storage.IgnoreConflict(mapError(err))
}

func (s *Store) DeleteCompletion(ctx context.Context, mechanismID, userID, date string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM completions WHERE mechanism_id = ? AND user_id = ? AND completed_date = ?",
		mechanismID, userID, date,
	)
	return mapError(err)
}

func (s *Store) ReadCompletions(ctx context.Context, mechanismID, userID, since string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT completed_date FROM completions
		WHERE mechanism_id = ? AND user_id = ? AND completed_date >= ?
		ORDER BY completed_date`,
		mechanismID, userID, since,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) ReadCompletionsForUser(ctx context.Context, userID string) ([]models.Completion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mechanism_id, user_id, completed_date, created_at
		FROM completions
		WHERE user_id = ?
		ORDER BY mechanism_id, completed_date`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.Completion
	for rows.Next() {
		var (
			c         models.Completion
			createdAt string
		)
		if err := rows.Scan(&c.MechanismID, &c.UserID, &c.CompletedDate, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
