package calendar

import (
	"sort"

	"github.com/julianstephens/cadence/internal/models"
)

// ExceptionIndex holds at most one schedule exception per (mechanism, original date).
type ExceptionIndex struct {
	byKey map[InstanceKey]models.ScheduleException
}

// NewExceptionIndex indexes records. Later records for the same key replace earlier ones.
func NewExceptionIndex(records []models.ScheduleException) *ExceptionIndex {
	x := &ExceptionIndex{byKey: make(map[InstanceKey]models.ScheduleException, len(records))}
	for _, rec := range records {
		x.Put(rec)
	}
	return x
}

// Resolve maps an occurrence's original date to the date it is displayed on.
func (x *ExceptionIndex) Resolve(mechanismID, occurrenceDate string) (effectiveDate string, isException bool) {
	if x != nil {
		if rec, ok := x.byKey[InstanceKey{MechanismID: mechanismID, OriginalDate: occurrenceDate}]; ok {
			return rec.MovedToDate, true
		}
	}
	return occurrenceDate, false
}

func (x *ExceptionIndex) Get(key InstanceKey) (models.ScheduleException, bool) {
	if x == nil {
		return models.ScheduleException{}, false
	}
	rec, ok := x.byKey[key]
	return rec, ok
}

// Put upserts rec under its (mechanism, original date) key.
func (x *ExceptionIndex) Put(rec models.ScheduleException) {
	x.byKey[InstanceKey{MechanismID: rec.MechanismID, OriginalDate: rec.OriginalDate}] = rec
}

func (x *ExceptionIndex) Remove(key InstanceKey) {
	delete(x.byKey, key)
}

func (x *ExceptionIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.byKey)
}

// ForMechanism returns the exceptions of one mechanism ordered by original date.
func (x *ExceptionIndex) ForMechanism(mechanismID string) []models.ScheduleException {
	if x == nil {
		return nil
	}
	var out []models.ScheduleException
	for key, rec := range x.byKey {
		if key.MechanismID == mechanismID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalDate < out[j].OriginalDate })
	return out
}
