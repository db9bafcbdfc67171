package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
)

const goalColumns = "id, user_id, participation_id, description, category, completed, completed_by, completed_at, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (models.Goal, error) {
	var (
		g               models.Goal
		participationID sql.NullString
		completedBy     sql.NullString
		completedAt     sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.UserID, &participationID, &g.Description, &g.Category, &g.Completed, &completedBy, &completedAt, &g.CreatedAt); err != nil {
		return models.Goal{}, err
	}
	g.ParticipationID = participationID.String
	g.CompletedBy = completedBy.String
	if completedAt.Valid {
		t := completedAt.Time
		g.CompletedAt = &t
	}
	return g, nil
}

func completedAtValue(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *Store) AddGoal(ctx context.Context, goal models.Goal) error {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		goal.ID, goal.UserID, nullString(goal.ParticipationID), goal.Description, goal.Category,
		goal.Completed, nullString(goal.CompletedBy), completedAtValue(goal.CompletedAt), goal.CreatedAt,
	)
	return mapError(err)
}

func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1", id)
	g, err := scanGoal(row)
	if err != nil {
		return models.Goal{}, fmt.Errorf("goal %s: %w", id, mapError(err))
	}
	return g, nil
}

func (s *Store) GetGoalsForUser(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, goal models.Goal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE goals
		SET participation_id = $1, description = $2, category = $3, completed = $4, completed_by = $5, completed_at = $6
		WHERE id = $7`,
		nullString(goal.ParticipationID), goal.Description, goal.Category,
		goal.Completed, nullString(goal.CompletedBy), completedAtValue(goal.CompletedAt), goal.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, "goal", goal.ID)
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM schedule_exceptions WHERE mechanism_id IN (SELECT id FROM mechanisms WHERE goal_id = $1)",
		"DELETE FROM completions WHERE mechanism_id IN (SELECT id FROM mechanisms WHERE goal_id = $1)",
		"DELETE FROM mechanisms WHERE goal_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return mapError(err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM goals WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	if err := requireAffected(res, "goal", id); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, errors.ErrNotFound)
	}
	return nil
}
