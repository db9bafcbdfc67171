// Package progress derives completion percentages, streaks and completion
// predictions from expected occurrences and completion records.
package progress

import (
	"math"
	"sort"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

// Input is everything needed to compute one mechanism's progress.
type Input struct {
	Mechanism models.Mechanism
	// Participation supplies default bounds for mechanisms without dates.
	Participation models.GenerationWindow
	// Window is the evaluation window. Empty means the mechanism's own bounds.
	Window      calendar.Range
	Exceptions  *calendar.ExceptionIndex
	Completions *calendar.CompletionIndex
	// Today is the YYYY-MM-DD date streaks and predictions are measured from.
	Today string
}

// Percentage returns round(100·completed/expected), or 0 when nothing is expected.
// It is not clamped: more completions than expectations yield more than 100.
func Percentage(completed, expected int) int {
	if expected <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(expected)))
}

// CalculateMechanismProgress computes progress over the intersection of the
// mechanism's bounds and the evaluation window. Only completions sitting on an
// occurrence's effective date on or after the window start are counted.
func CalculateMechanismProgress(in Input) models.Progress {
	bounds := calendar.Bounds(in.Mechanism, in.Participation)
	eval := bounds
	if !in.Window.Empty() {
		eval = bounds.Intersect(in.Window)
	}

	instances := calendar.Project(in.Mechanism, bounds, eval, in.Exceptions, in.Completions)

	p := models.Progress{TotalExpected: len(instances)}
	var done []string
	for _, inst := range instances {
		if !inst.IsCompleted || inst.EffectiveDate < eval.Start {
			continue
		}
		p.TotalCompleted++
		done = append(done, inst.EffectiveDate)
		if inst.EffectiveDate > p.LastCompletionDate {
			p.LastCompletionDate = inst.EffectiveDate
		}
	}
	sort.Strings(done)

	p.Percentage = Percentage(p.TotalCompleted, p.TotalExpected)
	p.CurrentStreak = currentStreak(instances, in.Today)
	p.CompletionPredictionDays = predictCompletionDays(done, p.TotalExpected-p.TotalCompleted, in.Today)
	return p
}

// currentStreak counts the most recent consecutive completed occurrences on or
// before today. An open occurrence dated today does not break the streak.
func currentStreak(instances []models.ActivityInstance, today string) int {
	past := make([]models.ActivityInstance, 0, len(instances))
	for _, inst := range instances {
		if today == "" || inst.EffectiveDate <= today {
			past = append(past, inst)
		}
	}
	sort.SliceStable(past, func(i, j int) bool { return past[i].EffectiveDate > past[j].EffectiveDate })

	streak := 0
	for _, inst := range past {
		if inst.IsCompleted {
			streak++
			continue
		}
		if inst.EffectiveDate == today && streak == 0 {
			continue
		}
		break
	}
	return streak
}

// predictCompletionDays estimates the days needed to finish the remaining
// occurrences at the recent completion velocity. done must be ascending.
func predictCompletionDays(done []string, remaining int, today string) *int {
	if today == "" && len(done) > 0 {
		today = done[len(done)-1]
	}
	todayDate, err := utils.ParseDate(today)
	if err != nil {
		return nil
	}

	var recent []string
	for _, d := range done {
		t, err := utils.ParseDate(d)
		if err != nil {
			continue
		}
		age := utils.DaysBetween(t, todayDate)
		if age >= 0 && age < constants.PredictionLookbackDays {
			recent = append(recent, d)
		}
	}
	if len(recent) < 2 {
		return nil
	}

	days := 0
	if remaining > 0 {
		first, _ := utils.ParseDate(recent[0])
		span := utils.DaysBetween(first, todayDate) + 1
		velocity := float64(len(recent)) / float64(span)
		days = int(math.Ceil(float64(remaining) / velocity))
	}
	return &days
}

// CalculateGoalProgress aggregates mechanism progress into goal progress.
// The percentage is the mean of mechanism percentages, forced to 100 while
// the goal carries a supervisor-confirmed completion.
func CalculateGoalProgress(goal models.Goal, mechanisms []models.Progress) models.Progress {
	var p models.Progress
	if len(mechanisms) == 0 {
		if goal.Completed {
			p.Percentage = 100
		}
		return p
	}

	sum := 0
	p.CurrentStreak = mechanisms[0].CurrentStreak
	for _, mp := range mechanisms {
		p.TotalExpected += mp.TotalExpected
		p.TotalCompleted += mp.TotalCompleted
		sum += mp.Percentage
		// A goal's streak is only as long as its weakest mechanism's
		if mp.CurrentStreak < p.CurrentStreak {
			p.CurrentStreak = mp.CurrentStreak
		}
		if mp.LastCompletionDate > p.LastCompletionDate {
			p.LastCompletionDate = mp.LastCompletionDate
		}
		if mp.CompletionPredictionDays != nil {
			if p.CompletionPredictionDays == nil || *mp.CompletionPredictionDays > *p.CompletionPredictionDays {
				days := *mp.CompletionPredictionDays
				p.CompletionPredictionDays = &days
			}
		}
	}

	p.Percentage = int(math.Round(float64(sum) / float64(len(mechanisms))))
	if goal.Completed {
		p.Percentage = 100
	}
	return p
}

// GatePercentage is the goal percentage the completion gate checks. It is the
// exact mean of mechanism completion ratios rounded down, so it only reaches
// 100 once every mechanism has completed all of its expected occurrences.
// The displayed percentage from CalculateGoalProgress is rounded and can read
// 100 a little earlier.
func GatePercentage(mechanisms []models.Progress) int {
	if len(mechanisms) == 0 {
		return 0
	}
	var sum float64
	for _, mp := range mechanisms {
		if mp.TotalExpected > 0 {
			sum += float64(mp.TotalCompleted) / float64(mp.TotalExpected)
		}
	}
	return int(math.Floor(100 * sum / float64(len(mechanisms))))
}
