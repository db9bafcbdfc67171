package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/metrics"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

// OpKind names a calendar mutation.
type OpKind string

const (
	OpMove   OpKind = "move"
	OpToggle OpKind = "toggle"
)

// Outcome is how a settled op affected local state.
type Outcome string

const (
	// OutcomeConfirmed means the store accepted the newest op for its key.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeRolledBack means the newest op failed and local state was restored.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeSuperseded means a newer op for the same key was issued; the response was discarded.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeLocalOnly means persistence is unavailable and the change is kept in memory.
	OutcomeLocalOnly Outcome = "local_only"
)

// opKey names the store record an op writes: a move's exception is keyed by
// original date, a toggle's completion by the effective date it was issued on.
type opKey struct {
	mechanismID string
	date        string
	kind        OpKind
}

// snapshot is the value an op writes or the last value the store confirmed.
type snapshot struct {
	exception    models.ScheduleException
	hasException bool
	date         string
	completed    bool
}

type opState struct {
	latest       uint64
	confirmed    snapshot
	confirmedSeq uint64
	outstanding  int
	// latestFailed is set once the newest op was rolled back, so a late
	// success from an older op can still become visible.
	latestFailed bool
}

// Op is an optimistic change already applied to local state, waiting for
// the store. Run it off the UI goroutine and hand the Result to Settle.
type Op struct {
	Kind OpKind
	Key  calendar.InstanceKey

	seq       uint64
	slot      opKey
	target    snapshot
	userID    string
	store     Store
	timeout   time.Duration
	localOnly bool
}

// Result is the store's answer to an Op.
type Result struct {
	Op  *Op
	Err error
}

// Run performs the store call for the op under the controller's timeout.
func (o *Op) Run(ctx context.Context) Result {
	if o.localOnly {
		return Result{Op: o, Err: errors.ErrPersistenceUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	defer metrics.ObserveStore(string(o.Kind), time.Now())

	var err error
	switch o.Kind {
	case OpMove:
		err = o.store.UpsertScheduleException(ctx, o.target.exception)
	case OpToggle:
		if o.target.completed {
			err = o.store.CreateCompletion(ctx, models.Completion{
				MechanismID:   o.Key.MechanismID,
				UserID:        o.userID,
				CompletedDate: o.target.date,
				CreatedAt:     time.Now(),
			})
		} else {
			err = o.store.DeleteCompletion(ctx, o.Key.MechanismID, o.userID, o.target.date)
		}
	default:
		err = fmt.Errorf("unknown op kind %q", o.Kind)
	}
	return Result{Op: o, Err: err}
}

// BeginMove moves the instance identified by key to newDate locally and
// returns the op that persists it. Moving back to the original date still
// records an exception.
func (c *Controller) BeginMove(key calendar.InstanceKey, newDate string) (*Op, error) {
	if err := utils.ValidateDate(newDate); err != nil {
		return nil, errors.Invalid("new date", newDate, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.checkKeyLocked(key); err != nil {
		return nil, err
	}

	current, ok := c.exceptions.Get(key)
	before := snapshot{exception: current, hasException: ok}
	target := snapshot{
		exception: models.ScheduleException{
			MechanismID:  key.MechanismID,
			UserID:       c.cfg.UserID,
			OriginalDate: key.OriginalDate,
			MovedToDate:  newDate,
			UpdatedAt:    time.Now(),
		},
		hasException: true,
	}

	slot := opKey{mechanismID: key.MechanismID, date: key.OriginalDate, kind: OpMove}
	op := c.beginLocked(slot, key, before, target)
	c.applyLocked(op.Kind, key, target)
	return op, nil
}

// BeginToggle flips completion of the instance on its effective date locally
// and returns the op that persists it.
func (c *Controller) BeginToggle(key calendar.InstanceKey) (*Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.checkKeyLocked(key); err != nil {
		return nil, err
	}

	effective, _ := c.exceptions.Resolve(key.MechanismID, key.OriginalDate)
	done := c.completions.IsCompleted(key.MechanismID, effective)
	before := snapshot{date: effective, completed: done}
	target := snapshot{date: effective, completed: !done}

	slot := opKey{mechanismID: key.MechanismID, date: effective, kind: OpToggle}
	op := c.beginLocked(slot, key, before, target)
	c.applyLocked(op.Kind, key, target)
	return op, nil
}

func (c *Controller) beginLocked(slot opKey, key calendar.InstanceKey, before, target snapshot) *Op {
	st, ok := c.inflight[slot]
	if !ok {
		st = &opState{confirmed: before}
		c.inflight[slot] = st
	}
	c.seq++
	st.latest = c.seq
	st.outstanding++
	st.latestFailed = false

	return &Op{
		Kind:      slot.kind,
		Key:       key,
		seq:       c.seq,
		slot:      slot,
		target:    target,
		userID:    c.cfg.UserID,
		store:     c.store,
		timeout:   c.cfg.Timeout,
		localOnly: c.localOnly,
	}
}

func (c *Controller) applyLocked(kind OpKind, key calendar.InstanceKey, s snapshot) {
	switch kind {
	case OpMove:
		if s.hasException {
			c.exceptions.Put(s.exception)
		} else {
			c.exceptions.Remove(key)
		}
	case OpToggle:
		c.completions.Set(models.Completion{
			MechanismID:   key.MechanismID,
			UserID:        c.cfg.UserID,
			CompletedDate: s.date,
		}, s.completed)
	}
}

// Settle reconciles local state with a store response. Only the newest op
// writing the same record decides the visible state; older responses are
// discarded. The returned error is non-nil only for a rollback.
func (c *Controller) Settle(res Result) (Outcome, error) {
	op := res.Op
	outcome, err := c.settle(res)

	metrics.Mutations.WithLabelValues(string(op.Kind), string(outcome)).Inc()
	if op.Kind == OpToggle && outcome != OutcomeSuperseded {
		c.publishProgress(op.Key.MechanismID)
	}
	return outcome, err
}

func (c *Controller) settle(res Result) (Outcome, error) {
	op := res.Op

	c.mu.Lock()
	defer c.mu.Unlock()

	k := op.slot
	st, ok := c.inflight[k]
	if !ok {
		logger.Debug("Discarding response for unknown op", "instance", op.Key.ID(), "op", op.Kind)
		return OutcomeSuperseded, nil
	}
	st.outstanding--
	defer func() {
		if st.outstanding <= 0 {
			delete(c.inflight, k)
		}
	}()
	latest := op.seq == st.latest

	switch {
	case res.Err == nil || errors.Is(res.Err, errors.ErrPersistenceUnavailable):
		if res.Err != nil {
			c.enterLocalOnlyLocked(res.Err)
		}
		if op.seq > st.confirmedSeq {
			st.confirmed = op.target
			st.confirmedSeq = op.seq
			// The newest op already failed and restored an older state
			if !latest && st.latestFailed {
				c.applyLocked(op.Kind, op.Key, op.target)
			}
		}
		if !latest {
			logger.Debug("Discarding superseded response", "instance", op.Key.ID(), "op", op.Kind)
			return OutcomeSuperseded, nil
		}
		if res.Err != nil {
			return OutcomeLocalOnly, nil
		}
		return OutcomeConfirmed, nil

	case !latest:
		logger.Debug("Discarding superseded failure", "instance", op.Key.ID(), "op", op.Kind, "error", res.Err)
		return OutcomeSuperseded, nil

	default:
		st.latestFailed = true
		c.applyLocked(op.Kind, op.Key, st.confirmed)
		logger.Warn("Rolled back calendar change", "instance", op.Key.ID(), "op", op.Kind, "error", res.Err)
		return OutcomeRolledBack, fmt.Errorf("%s %s: %w", op.Kind, op.Key.ID(), res.Err)
	}
}

// MoveActivity moves an instance and waits for the store.
func (c *Controller) MoveActivity(ctx context.Context, key calendar.InstanceKey, newDate string) (Outcome, error) {
	op, err := c.BeginMove(key, newDate)
	if err != nil {
		return "", err
	}
	return c.Settle(op.Run(ctx))
}

// ToggleCompletion flips an instance's completion and waits for the store.
func (c *Controller) ToggleCompletion(ctx context.Context, key calendar.InstanceKey) (Outcome, error) {
	op, err := c.BeginToggle(key)
	if err != nil {
		return "", err
	}
	return c.Settle(op.Run(ctx))
}
