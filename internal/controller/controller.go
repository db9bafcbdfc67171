// Package controller owns the mutable calendar state for one user and
// applies moves and completion toggles optimistically, confirming or rolling
// them back when the store answers.
package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/utils"
)

// Store is the slice of storage.Provider the controller depends on.
type Store interface {
	ReadMechanismsForUser(ctx context.Context, userID, participationID string) ([]models.Mechanism, error)
	ReadScheduleExceptions(ctx context.Context, userID string) ([]models.ScheduleException, error)
	ReadCompletionsForUser(ctx context.Context, userID string) ([]models.Completion, error)
	ReadGenerationWindow(ctx context.Context, userID string) (models.GenerationWindow, error)
	GetGoalsForUser(ctx context.Context, userID string) ([]models.Goal, error)
	UpsertScheduleException(ctx context.Context, ex models.ScheduleException) error
	CreateCompletion(ctx context.Context, c models.Completion) error
	DeleteCompletion(ctx context.Context, mechanismID, userID, date string) error
	UpdateGoal(ctx context.Context, goal models.Goal) error
	IsSupervisor(ctx context.Context, actorID, ownerID string) (bool, error)
}

// Config selects whose calendar the controller manages.
type Config struct {
	UserID          string
	ParticipationID string
	// Today returns the current civil date. Defaults to today in Timezone.
	Today    func() string
	Timezone string
	// Timeout bounds each store call. Defaults to constants.StoreTimeout.
	Timeout time.Duration
}

// ProgressUpdate is published after a completion change settles.
type ProgressUpdate struct {
	MechanismID string
	Mechanism   models.Progress
	GoalID      string
	Goal        models.Progress
}

type Controller struct {
	mu    sync.Mutex
	store Store
	cfg   Config

	window     models.GenerationWindow
	mechanisms map[string]models.Mechanism
	order      []string
	goals      map[string]models.Goal

	exceptions  *calendar.ExceptionIndex
	completions *calendar.CompletionIndex
	index       *calendar.Index

	seq       uint64
	inflight  map[opKey]*opState
	localOnly bool

	// OnProgress, when set, receives recomputed progress after a toggle
	// settles or a goal changes state. It is called without locks held.
	OnProgress func(ProgressUpdate)
}

func New(store Store, cfg Config) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.StoreTimeout
	}
	if cfg.Today == nil {
		tz := cfg.Timezone
		cfg.Today = func() string {
			today, err := utils.GetTodayInTimezone(tz)
			if err != nil {
				return utils.FormatDate(time.Now())
			}
			return today
		}
	}
	return &Controller{
		store:       store,
		cfg:         cfg,
		mechanisms:  make(map[string]models.Mechanism),
		goals:       make(map[string]models.Goal),
		exceptions:  calendar.NewExceptionIndex(nil),
		completions: calendar.NewCompletionIndex(nil),
		index:       calendar.NewIndex(),
		inflight:    make(map[opKey]*opState),
	}
}

// Load reads the user's mechanisms, goals, window and records. Missing
// exception or completion tables put the controller in local-only mode
// instead of failing.
func (c *Controller) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	mechs, err := c.store.ReadMechanismsForUser(ctx, c.cfg.UserID, c.cfg.ParticipationID)
	if err != nil {
		return fmt.Errorf("loading mechanisms: %w", err)
	}
	goals, err := c.store.GetGoalsForUser(ctx, c.cfg.UserID)
	if err != nil {
		return fmt.Errorf("loading goals: %w", err)
	}
	window, err := c.store.ReadGenerationWindow(ctx, c.cfg.UserID)
	if err != nil && !errors.Is(err, errors.ErrPersistenceUnavailable) {
		return fmt.Errorf("loading generation window: %w", err)
	}

	localOnly := false
	exceptions, err := c.store.ReadScheduleExceptions(ctx, c.cfg.UserID)
	if errors.Is(err, errors.ErrPersistenceUnavailable) {
		localOnly = true
	} else if err != nil {
		return fmt.Errorf("loading schedule exceptions: %w", err)
	}
	completions, err := c.store.ReadCompletionsForUser(ctx, c.cfg.UserID)
	if errors.Is(err, errors.ErrPersistenceUnavailable) {
		localOnly = true
	} else if err != nil {
		return fmt.Errorf("loading completions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = window
	c.mechanisms = make(map[string]models.Mechanism, len(mechs))
	c.order = c.order[:0]
	for _, m := range mechs {
		c.mechanisms[m.ID] = m
		c.order = append(c.order, m.ID)
	}
	c.goals = make(map[string]models.Goal, len(goals))
	for _, g := range goals {
		if c.cfg.ParticipationID != "" && g.ParticipationID != c.cfg.ParticipationID {
			continue
		}
		c.goals[g.ID] = g
	}
	c.exceptions = calendar.NewExceptionIndex(exceptions)
	c.completions = calendar.NewCompletionIndex(completions)
	c.inflight = make(map[opKey]*opState)
	if localOnly {
		c.enterLocalOnlyLocked(errors.ErrPersistenceUnavailable)
	}

	logger.Debug("Calendar state loaded",
		"mechanisms", len(mechs), "goals", len(c.goals),
		"exceptions", c.exceptions.Len(), "completions", c.completions.Len())
	return nil
}

// enterLocalOnlyLocked switches to local-only mode, warning on the first switch.
func (c *Controller) enterLocalOnlyLocked(cause error) {
	if c.localOnly {
		return
	}
	c.localOnly = true
	logger.Warn("Persistence unavailable, changes will only be kept for this session", "error", cause)
}

// LocalOnly reports whether changes are being kept in memory only.
func (c *Controller) LocalOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localOnly
}

// Window returns the generation window in effect.
func (c *Controller) Window() models.GenerationWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Today returns the controller's notion of the current date.
func (c *Controller) Today() string {
	return c.cfg.Today()
}

// Mechanisms returns the loaded mechanisms in store order.
func (c *Controller) Mechanisms() []models.Mechanism {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Mechanism, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.mechanisms[id])
	}
	return out
}

// Goals returns the loaded goals ordered by creation.
func (c *Controller) Goals() []models.Goal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Goal, 0, len(c.goals))
	for _, g := range c.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetActivityInstances returns the instances whose effective date falls in
// [from, to], including occurrences moved in from outside the range.
func (c *Controller) GetActivityInstances(from, to string) ([]models.ActivityInstance, error) {
	rng, err := calendar.NewRange(from, to)
	if err != nil {
		return nil, err
	}
	if rng.Empty() {
		return nil, errors.Invalid("range", from+".."+to, "end date is before start date")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.ActivityInstance
	for _, id := range c.order {
		m := c.mechanisms[id]
		bounds := calendar.Bounds(m, c.window)
		for _, inst := range calendar.Visible(m, bounds, rng, c.exceptions, c.completions) {
			c.index.Add(calendar.KeyOf(inst))
			out = append(out, inst)
		}
	}
	calendar.SortInstances(out)
	return out, nil
}

// Resolve maps a display id handed out by GetActivityInstances back to its key.
func (c *Controller) Resolve(id string) (calendar.InstanceKey, error) {
	key, ok := c.index.Lookup(id)
	if !ok {
		return calendar.InstanceKey{}, errors.Invalid("instance", id, "unknown activity instance")
	}
	return key, nil
}

// checkKeyLocked verifies key names a real occurrence of a loaded mechanism.
func (c *Controller) checkKeyLocked(key calendar.InstanceKey) (models.Mechanism, error) {
	m, ok := c.mechanisms[key.MechanismID]
	if !ok {
		return models.Mechanism{}, errors.Invalid("mechanism", key.MechanismID, "unknown mechanism")
	}
	original, err := utils.ParseDate(key.OriginalDate)
	if err != nil {
		return models.Mechanism{}, errors.Invalid("original date", key.OriginalDate, "expected YYYY-MM-DD")
	}
	bounds := calendar.Bounds(m, c.window)
	anchor, err := utils.ParseDate(bounds.Start)
	if err != nil || !bounds.Contains(key.OriginalDate) || !recurrence.Occurs(m.Frequency, anchor, original) {
		return models.Mechanism{}, errors.Invalid("original date", key.OriginalDate, "not an occurrence of "+m.Description)
	}
	return m, nil
}

// Instance returns the current projection of the occurrence identified by key
// and registers its display id.
func (c *Controller) Instance(key calendar.InstanceKey) (models.ActivityInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.checkKeyLocked(key)
	if err != nil {
		return models.ActivityInstance{}, err
	}
	day := calendar.Range{Start: key.OriginalDate, End: key.OriginalDate}
	instances := calendar.Project(m, calendar.Bounds(m, c.window), day, c.exceptions, c.completions)
	if len(instances) == 0 {
		return models.ActivityInstance{}, errors.Invalid("instance", key.ID(), "not an occurrence of "+m.Description)
	}
	c.index.Add(key)
	return instances[0], nil
}
