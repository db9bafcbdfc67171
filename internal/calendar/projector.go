package calendar

import (
	"sort"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/utils"
)

// Project returns one instance per occurrence whose original date falls in
// rng ∩ bounds. Completion is looked up on the effective date, so an
// occurrence that was moved only counts as done where it landed.
func Project(m models.Mechanism, bounds, rng Range, exceptions *ExceptionIndex, completions *CompletionIndex) []models.ActivityInstance {
	span := bounds.Intersect(rng)
	if bounds.Empty() || span.Empty() {
		return nil
	}

	dates, err := recurrence.ExpandDates(m.Frequency, bounds.Start, span.Start, span.End)
	if err != nil {
		return nil
	}

	instances := make([]models.ActivityInstance, 0, len(dates))
	for _, original := range dates {
		instances = append(instances, instanceFor(m, original, exceptions, completions))
	}
	SortInstances(instances)
	return instances
}

// Visible returns the instances a calendar showing rng should render: those
// whose effective date lands inside rng, including occurrences moved in from
// dates outside it.
func Visible(m models.Mechanism, bounds, rng Range, exceptions *ExceptionIndex, completions *CompletionIndex) []models.ActivityInstance {
	var out []models.ActivityInstance
	for _, inst := range Project(m, bounds, rng, exceptions, completions) {
		if rng.Contains(inst.EffectiveDate) {
			out = append(out, inst)
		}
	}

	if bounds.Empty() {
		return out
	}
	anchor, err := utils.ParseDate(bounds.Start)
	if err != nil {
		return out
	}
	for _, rec := range exceptions.ForMechanism(m.ID) {
		if rng.Contains(rec.OriginalDate) || !rng.Contains(rec.MovedToDate) || !bounds.Contains(rec.OriginalDate) {
			continue
		}
		original, err := utils.ParseDate(rec.OriginalDate)
		if err != nil || !recurrence.Occurs(m.Frequency, anchor, original) {
			continue
		}
		out = append(out, instanceFor(m, rec.OriginalDate, exceptions, completions))
	}

	SortInstances(out)
	return out
}

func instanceFor(m models.Mechanism, original string, exceptions *ExceptionIndex, completions *CompletionIndex) models.ActivityInstance {
	effective, isException := exceptions.Resolve(m.ID, original)
	key := InstanceKey{MechanismID: m.ID, OriginalDate: original}
	return models.ActivityInstance{
		ID:                   key.ID(),
		MechanismID:          m.ID,
		MechanismDescription: m.Description,
		GoalID:               m.GoalID,
		GoalDescription:      m.GoalDescription,
		OriginalDate:         original,
		EffectiveDate:        effective,
		IsException:          isException,
		IsCompleted:          completions.IsCompleted(m.ID, effective),
	}
}

// SortInstances orders instances by effective date, goal, mechanism and original date.
func SortInstances(instances []models.ActivityInstance) {
	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.EffectiveDate != b.EffectiveDate {
			return a.EffectiveDate < b.EffectiveDate
		}
		if a.GoalID != b.GoalID {
			return a.GoalID < b.GoalID
		}
		if a.MechanismID != b.MechanismID {
			return a.MechanismID < b.MechanismID
		}
		return a.OriginalDate < b.OriginalDate
	})
}

// GroupByDate buckets instances by effective date for calendar cells.
func GroupByDate(instances []models.ActivityInstance) map[string][]models.ActivityInstance {
	cells := make(map[string][]models.ActivityInstance)
	for _, inst := range instances {
		cells[inst.EffectiveDate] = append(cells[inst.EffectiveDate], inst)
	}
	return cells
}

// KeyOf returns the structured key of an instance.
func KeyOf(inst models.ActivityInstance) InstanceKey {
	return InstanceKey{MechanismID: inst.MechanismID, OriginalDate: inst.OriginalDate}
}
