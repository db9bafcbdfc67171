package controller

import (
	"context"
	"sync"

	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
)

// fakeStore is an in-memory Store whose calls can be made to fail per method.
type fakeStore struct {
	mu          sync.Mutex
	mechanisms  []models.Mechanism
	goals       map[string]models.Goal
	window      models.GenerationWindow
	exceptions  map[[2]string]models.ScheduleException
	completions map[[3]string]models.Completion
	supervisors map[[2]string]bool

	fail  map[string]error
	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		goals:       make(map[string]models.Goal),
		exceptions:  make(map[[2]string]models.ScheduleException),
		completions: make(map[[3]string]models.Completion),
		supervisors: make(map[[2]string]bool),
		fail:        make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (f *fakeStore) record(method string) error {
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeStore) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) ReadMechanismsForUser(_ context.Context, userID, _ string) ([]models.Mechanism, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadMechanismsForUser"); err != nil {
		return nil, err
	}
	var out []models.Mechanism
	for _, m := range f.mechanisms {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ReadScheduleExceptions(_ context.Context, _ string) ([]models.ScheduleException, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadScheduleExceptions"); err != nil {
		return nil, err
	}
	var out []models.ScheduleException
	for _, ex := range f.exceptions {
		out = append(out, ex)
	}
	return out, nil
}

func (f *fakeStore) ReadCompletionsForUser(_ context.Context, _ string) ([]models.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadCompletionsForUser"); err != nil {
		return nil, err
	}
	var out []models.Completion
	for _, c := range f.completions {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) ReadGenerationWindow(_ context.Context, _ string) (models.GenerationWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window, f.record("ReadGenerationWindow")
}

func (f *fakeStore) GetGoalsForUser(_ context.Context, userID string) ([]models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetGoalsForUser"); err != nil {
		return nil, err
	}
	var out []models.Goal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertScheduleException(_ context.Context, ex models.ScheduleException) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpsertScheduleException"); err != nil {
		return err
	}
	f.exceptions[[2]string{ex.MechanismID, ex.OriginalDate}] = ex
	return nil
}

func (f *fakeStore) CreateCompletion(_ context.Context, c models.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCompletion"); err != nil {
		return err
	}
	f.completions[[3]string{c.MechanismID, c.UserID, c.CompletedDate}] = c
	return nil
}

func (f *fakeStore) DeleteCompletion(_ context.Context, mechanismID, userID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteCompletion"); err != nil {
		return err
	}
	delete(f.completions, [3]string{mechanismID, userID, date})
	return nil
}

func (f *fakeStore) UpdateGoal(_ context.Context, goal models.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateGoal"); err != nil {
		return err
	}
	if _, ok := f.goals[goal.ID]; !ok {
		return errors.ErrNotFound
	}
	f.goals[goal.ID] = goal
	return nil
}

func (f *fakeStore) IsSupervisor(_ context.Context, actorID, ownerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("IsSupervisor"); err != nil {
		return false, err
	}
	return f.supervisors[[2]string{actorID, ownerID}], nil
}
