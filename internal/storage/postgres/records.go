package postgres

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
			VALUES ($1, $2, $3, $4, $5)`,
			ex.MechanismID, ex.UserID, ex.OriginalDate, ex.MovedToDate, ex.UpdatedAt,
		)
		return mapError(err)
	}
	update := func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE schedule_exceptions
			SET moved_to_date = $1, user_id = $2, updated_at = $3
			WHERE mechanism_id = $4 AND original_date = $5`,
			ex.MovedToDate, ex.UserID, ex.UpdatedAt, ex.MechanismID, ex.OriginalDate,
		)
		return mapError(err)
	}
	return storage.UpsertOnConflict(insert, update)
}

func (s *Store) ReadScheduleExceptions(ctx context.Context, userID string) ([]models.ScheduleException, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mechanism_id, user_id, original_date, moved_to_date, updated_at
		FROM schedule_exceptions
		WHERE user_id = $1
		ORDER BY mechanism_id, original_date`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.ScheduleException
	for rows.Next() {
		var ex models.ScheduleException
		if err := rows.Scan(&ex.MechanismID, &ex.UserID, &ex.OriginalDate, &ex.MovedToDate, &ex.UpdatedAt); err != nil {
			return nil, err
		}
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
		VALUES ($1, $2, $3, $4)`,
		c.MechanismID, c.UserID, c.CompletedDate, c.CreatedAt,
	)
	return storage.IgnoreConflict(mapError(err))
}

func (s *Store) DeleteCompletion(ctx context.Context, mechanismID, userID, date string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM completions WHERE mechanism_id = $1 AND user_id = $2 AND completed_date = $3",
		mechanismID, userID, date,
	)
	return mapError(err)
}

func (s *Store) ReadCompletions(ctx context.Context, mechanismID, userID, since string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT completed_date FROM completions
		WHERE mechanism_id = $1 AND user_id = $2 AND completed_date >= $3
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
		WHERE user_id = $1
		ORDER BY mechanism_id, completed_date`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.Completion
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.MechanismID, &c.UserID, &c.CompletedDate, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
