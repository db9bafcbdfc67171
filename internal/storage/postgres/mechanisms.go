package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

const mechanismSelect = `
	SELECT m.id, m.goal_id, m.user_id, m.description, m.frequency, m.start_date, m.end_date, m.created_at,
	       g.description, g.category
	FROM mechanisms m
	JOIN goals g ON g.id = m.goal_id`

func scanMechanism(row rowScanner) (models.Mechanism, error) {
	var (
		m         models.Mechanism
		frequency string
		startDate sql.NullString
		endDate   sql.NullString
	)
	if err := row.Scan(&m.ID, &m.GoalID, &m.UserID, &m.Description, &frequency, &startDate, &endDate, &m.CreatedAt,
		&m.GoalDescription, &m.GoalCategory); err != nil {
		return models.Mechanism{}, err
	}
	m.Frequency = constants.Frequency(frequency)
	m.StartDate = startDate.String
	m.EndDate = endDate.String
	return m, nil
}

func (s *Store) AddMechanism(ctx context.Context, m models.Mechanism) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mechanisms (id, goal_id, user_id, description, frequency, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.GoalID, m.UserID, m.Description, string(m.Frequency),
		nullString(m.StartDate), nullString(m.EndDate), m.CreatedAt,
	)
	return mapError(err)
}

func (s *Store) GetMechanism(ctx context.Context, id string) (models.Mechanism, error) {
	row := s.db.QueryRowContext(ctx, mechanismSelect+" WHERE m.id = $1", id)
	m, err := scanMechanism(row)
	if err != nil {
		return models.Mechanism{}, fmt.Errorf("mechanism %s: %w", id, mapError(err))
	}
	return m, nil
}

func (s *Store) UpdateMechanism(ctx context.Context, m models.Mechanism) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE mechanisms
		SET description = $1, frequency = $2, start_date = $3, end_date = $4
		WHERE id = $5`,
		m.Description, string(m.Frequency), nullString(m.StartDate), nullString(m.EndDate), m.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res, "mechanism", m.ID)
}

func (s *Store) DeleteMechanism(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_exceptions WHERE mechanism_id = $1", id); err != nil {
		return mapError(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM completions WHERE mechanism_id = $1", id); err != nil {
		return mapError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM mechanisms WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	if err := requireAffected(res, "mechanism", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReadMechanismsForUser(ctx context.Context, userID, participationID string) ([]models.Mechanism, error) {
	query := mechanismSelect + " WHERE m.user_id = $1"
	args := []any{userID}
	if participationID != "" {
		query += " AND g.participation_id = $2"
		args = append(args, participationID)
	}
	query += " ORDER BY g.created_at, m.created_at, m.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.Mechanism
	for rows.Next() {
		m, err := scanMechanism(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
