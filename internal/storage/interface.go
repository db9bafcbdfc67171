package storage

import (
	"context"

	"github.com/julianstephens/cadence/internal/models"
)

// Provider is the persistence surface the engine runs on. Mutating calls are
// expected to carry a deadline; see constants.StoreTimeout.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Participation
	SaveParticipation(ctx context.Context, p models.Participation) error
	// ReadGenerationWindow returns the window of the user's most recent
	// participation, or a zero window when the user has none.
	ReadGenerationWindow(ctx context.Context, userID string) (models.GenerationWindow, error)
	GetLatestParticipation(ctx context.Context, userID string) (models.Participation, error)

	// Goals
	AddGoal(ctx context.Context, goal models.Goal) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	GetGoalsForUser(ctx context.Context, userID string) ([]models.Goal, error)
	UpdateGoal(ctx context.Context, goal models.Goal) error
	// DeleteGoal removes the goal with its mechanisms, exceptions and completions.
	DeleteGoal(ctx context.Context, id string) error

	// Mechanisms
	AddMechanism(ctx context.Context, m models.Mechanism) error
	GetMechanism(ctx context.Context, id string) (models.Mechanism, error)
	UpdateMechanism(ctx context.Context, m models.Mechanism) error
	DeleteMechanism(ctx context.Context, id string) error
	// ReadMechanismsForUser returns the user's mechanisms joined with their
	// parent goal's description and category. An empty participationID
	// returns mechanisms across every participation.
	ReadMechanismsForUser(ctx context.Context, userID, participationID string) ([]models.Mechanism, error)

	// Schedule exceptions
	// UpsertScheduleException keeps at most one record per (mechanism, original date).
	UpsertScheduleException(ctx context.Context, ex models.ScheduleException) error
	ReadScheduleExceptions(ctx context.Context, userID string) ([]models.ScheduleException, error)

	// Completions
	// CreateCompletion is idempotent; recording an existing completion succeeds.
	CreateCompletion(ctx context.Context, c models.Completion) error
	// DeleteCompletion is idempotent; removing a missing completion succeeds.
	DeleteCompletion(ctx context.Context, mechanismID, userID, date string) error
	// ReadCompletions returns completed dates on or after since (all when empty), ascending.
	ReadCompletions(ctx context.Context, mechanismID, userID, since string) ([]string, error)
	ReadCompletionsForUser(ctx context.Context, userID string) ([]models.Completion, error)

	// Roles
	AddSupervisor(ctx context.Context, supervisorID, userID string) error
	IsSupervisor(ctx context.Context, actorID, ownerID string) (bool, error)

	// Diagnostics
	// MissingTables lists engine tables that do not exist in the backing store.
	MissingTables(ctx context.Context) ([]string, error)

	// Utils
	GetConfigPath() string
}

// EngineTables are the tables whose absence degrades the engine to local-only mode.
var EngineTables = []string{
	"settings",
	"participations",
	"goals",
	"mechanisms",
	"schedule_exceptions",
	"completions",
	"supervisors",
}
