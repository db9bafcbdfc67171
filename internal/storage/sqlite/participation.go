package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

func (s *Store) SaveParticipation(ctx context.Context, p models.Participation) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	insert := func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO participations (id, user_id, generation, mechanisms_start, mechanisms_end, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.Generation, p.MechanismsStart, p.MechanismsEnd, formatTime(p.CreatedAt),
		)
		return mapError(err)
	}
	update := func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE participations
			SET generation = ?, mechanisms_start = ?, mechanisms_end = ?
			WHERE id = ?`,
			p.Generation, p.MechanismsStart, p.MechanismsEnd, p.ID,
		)
		return mapError(err)
	}
	return storage.UpsertOnConflict(insert, update)
}

func (s *Store) GetLatestParticipation(ctx context.Context, userID string) (models.Participation, error) {
	var (
		p         models.Participation
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, generation, mechanisms_start, mechanisms_end, created_at
		FROM participations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Generation, &p.MechanismsStart, &p.MechanismsEnd, &createdAt)
	if err != nil {
		return models.Participation{}, fmt.Errorf("participation for %s: %w", userID, mapError(err))
	}
	p.CreatedAt = parseTime(createdAt)
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
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO supervisors (supervisor_id, user_id, created_at) VALUES (?, ?, ?)",
		supervisorID, userID, formatTime(time.Now()),
	)
	return storage.IgnoreConflict(mapError(err))
}

func (s *Store) IsSupervisor(ctx context.Context, actorID, ownerID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM supervisors WHERE supervisor_id = ? AND user_id = ?",
		actorID, ownerID,
	).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}
