package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
)

func (s *Store) SaveParticipation(ctx context.Context, p models.Participation) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participations (id, user_id, generation, mechanisms_start, mechanisms_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET generation = EXCLUDED.generation,
		    mechanisms_start = EXCLUDED.mechanisms_start,
		    mechanisms_end = EXCLUDED.mechanisms_end`,
		p.ID, p.UserID, p.Generation, p.MechanismsStart, p.MechanismsEnd, p.CreatedAt,
	)
	return mapError(err)
}

func (s *Store) GetLatestParticipation(ctx context.Context, userID string) (models.Participation, error) {
	var p models.Participation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, generation, mechanisms_start, mechanisms_end, created_at
		FROM participations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Generation, &p.MechanismsStart, &p.MechanismsEnd, &p.CreatedAt)
	if err != nil {
		return models.Participation{}, fmt.Errorf("participation for %s: %w", userID, mapError(err))
	}
	return p, nil
}

func (s *Store) ReadGenerationWindow(ctx context.Context, userID string) (models.GenerationWindow, error) {
	p, err := s.GetLatestParticipation(ctx, userID)
	if errors.Is(err, errors.ErrNotFound) {
		return models.GenerationWindow{}, nil
	}
	if err != nil {
		return models.GenerationWindow{}, err
	}
	return p.Window(), nil
}

func (s *Store) AddSupervisor(ctx context.Context, supervisorID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supervisors (supervisor_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (supervisor_id, user_id) DO NOTHING`,
		supervisorID, userID, time.Now(),
	)
	return mapError(err)
}

func (s *Store) IsSupervisor(ctx context.Context, actorID, ownerID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM supervisors WHERE supervisor_id = $1 AND user_id = $2)",
		actorID, ownerID,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}
