package sqlite

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
		completedAt     sql.NullString
		completed       int
		createdAt       string
	)
	if err := row.Scan(&g.ID, &g.UserID, &participationID, &g.Description, &g.Category, &completed, &completedBy, &completedAt, &createdAt); err != nil {
		return models.Goal{}, err
	}
	g.ParticipationID = participationID.String
	g.Completed = completed == 1
	g.CompletedBy = completedBy.String
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		g.CompletedAt = &t
	}
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

func completedAtValue(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func (s *Store) AddGoal(ctx context.Context, goal models.Goal) error {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now()
	}
	completed := 0
	if goal.Completed {
		completed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, nullString(goal.ParticipationID), goal.Description, goal.Category,
		completed, nullString(goal.CompletedBy), completedAtValue(goal.CompletedAt), formatTime(goal.CreatedAt),
	)
	return mapError(err)
}

func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if err != nil {
		return models.Goal{}, fmt.Errorf("goal %s: %w", id, mapError(err))
	}
	return g, nil
}

func (s *Store) GetGoalsForUser(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE user_id = ? ORDER BY created_at, id", userID)
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
	completed := 0
	if goal.Completed {
		completed = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE goals
		SET participation_id = ?, description = ?, category = ?, completed = ?, completed_by = ?, completed_at = ?
		WHERE id = ?`,
		nullString(goal.ParticipationID), goal.Description, goal.Category,
		completed, nullString(goal.CompletedBy), completedAtValue(goal.CompletedAt), goal.ID,
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
		"DELETE FROM schedule_exceptions WHERE mechanism_id IN (SELECT id FROM mechanisms WHERE goal_id = ?)",
		"DELETE FROM completions WHERE mechanism_id IN (SELECT id FROM mechanisms WHERE goal_id = ?)",
		"DELETE FROM mechanisms WHERE goal_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return mapError(err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
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
