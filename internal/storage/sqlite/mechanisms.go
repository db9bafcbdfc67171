package sqlite

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
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.GoalID, &m.UserID, &m.Description, &frequency, &startDate, &endDate, &createdAt,
		&m.GoalDescription, &m.GoalCategory); err != nil {
		return models.Mechanism{}, err
	}
	m.Frequency = constants.Frequency(frequency)
	m.StartDate = startDate.String
	m.EndDate = endDate.String
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func (s *Store) AddMechanism(ctx context.Context, m models.Mechanism) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mechanisms (id, goal_id, user_id, description, frequency, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.GoalID, m.UserID, m.Description, string(m.Frequency),
		nullString(m.StartDate), nullString(m.EndDate), formatTime(m.CreatedAt),
	)
	return mapError(err)
}

func (s *Store) GetMechanism(ctx context.Context, id string) (models.Mechanism, error) {
	row := s.db.QueryRowContext(ctx, mechanismSelect+" WHERE m.id = ?", id)
	m, err := scanMechanism(row)
	if err != nil {
		return models.Mechanism{}, fmt.Errorf("mechanism %s: %w", id, mapError(err))
	}
	return m, nil
}

func (s *Store) UpdateMechanism(ctx context.Context, m models.Mechanism) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE mechanisms
		SET description = ?, frequency = ?, start_date = ?, end_date = ?
		WHERE id = ?`,
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_exceptions WHERE mechanism_id = ?", id); err != nil {
		return mapError(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM completions WHERE mechanism_id = ?", id); err != nil {
		return mapError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM mechanisms WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	if err := requireAffected(res, "mechanism", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReadMechanismsForUser(ctx context.Context, userID, participationID string) ([]models.Mechanism, error) {
	query := mechanismSelect + " WHERE m.user_id = ?"
	args := []any{userID}
	if participationID != "" {
		query += " AND g.participation_id = ?"
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
