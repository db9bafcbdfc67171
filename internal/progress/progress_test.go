package progress

import (
	"testing"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
)

func dailyMechanism() models.Mechanism {
	return models.Mechanism{
		ID:        "m1",
		GoalID:    "g1",
		Frequency: constants.FrequencyDaily,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-10",
	}
}

func completions(dates ...string) *calendar.CompletionIndex {
	recs := make([]models.Completion, 0, len(dates))
	for _, d := range dates {
		recs = append(recs, models.Completion{MechanismID: "m1", UserID: "u1", CompletedDate: d})
	}
	return calendar.NewCompletionIndex(recs)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, expected, want int
	}{
		{6, 10, 60},
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{12, 10, 120},
	}
	for _, tt := range tests {
		if got := Percentage(tt.completed, tt.expected); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.completed, tt.expected, got, tt.want)
		}
	}
}

func TestCalculateMechanismProgress_SixOfTen(t *testing.T) {
	in := Input{
		Mechanism:   dailyMechanism(),
		Window:      calendar.Range{Start: "2024-01-01", End: "2024-01-10"},
		Exceptions:  calendar.NewExceptionIndex(nil),
		Completions: completions("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05", "2024-01-06", "2024-01-07"),
		Today:       "2024-01-07",
	}

	p := CalculateMechanismProgress(in)
	if p.TotalExpected != 10 {
		t.Errorf("TotalExpected = %d, want 10", p.TotalExpected)
	}
	if p.TotalCompleted != 6 {
		t.Errorf("TotalCompleted = %d, want 6", p.TotalCompleted)
	}
	if p.Percentage != 60 {
		t.Errorf("Percentage = %d, want 60", p.Percentage)
	}
	if p.CurrentStreak != 3 {
		t.Errorf("CurrentStreak = %d, want 3", p.CurrentStreak)
	}
	if p.LastCompletionDate != "2024-01-07" {
		t.Errorf("LastCompletionDate = %q, want 2024-01-07", p.LastCompletionDate)
	}
	// 6 completions over 7 days, 4 remaining: ceil(4 / (6/7)) = 5
	if p.CompletionPredictionDays == nil || *p.CompletionPredictionDays != 5 {
		t.Errorf("CompletionPredictionDays = %v, want 5", p.CompletionPredictionDays)
	}
}

func TestCalculateMechanismProgress_NothingExpected(t *testing.T) {
	m := dailyMechanism()
	m.StartDate, m.EndDate = "", ""

	p := CalculateMechanismProgress(Input{
		Mechanism:   m,
		Exceptions:  calendar.NewExceptionIndex(nil),
		Completions: completions("2024-01-01"),
	})
	if p.TotalExpected != 0 || p.TotalCompleted != 0 || p.Percentage != 0 {
		t.Errorf("expected zero progress, got %+v", p)
	}
	if p.CompletionPredictionDays != nil {
		t.Errorf("expected no prediction, got %d", *p.CompletionPredictionDays)
	}
}

func TestCalculateMechanismProgress_DefaultsToParticipationWindow(t *testing.T) {
	m := dailyMechanism()
	m.StartDate, m.EndDate = "", ""

	p := CalculateMechanismProgress(Input{
		Mechanism:     m,
		Participation: models.GenerationWindow{MechanismsStart: "2024-02-01", MechanismsEnd: "2024-02-05"},
		Exceptions:    calendar.NewExceptionIndex(nil),
		Completions:   completions("2024-02-01"),
		Today:         "2024-02-01",
	})
	if p.TotalExpected != 5 || p.TotalCompleted != 1 || p.Percentage != 20 {
		t.Errorf("got %+v, want 1 of 5 (20%%)", p)
	}
}

func TestCalculateMechanismProgress_MovedInstance(t *testing.T) {
	ex := calendar.NewExceptionIndex([]models.ScheduleException{
		{MechanismID: "m1", OriginalDate: "2024-01-03", MovedToDate: "2024-01-04"},
	})

	t.Run("completion on stale original date is ignored", func(t *testing.T) {
		p := CalculateMechanismProgress(Input{
			Mechanism:   dailyMechanism(),
			Window:      calendar.Range{Start: "2024-01-01", End: "2024-01-10"},
			Exceptions:  ex,
			Completions: completions("2024-01-03"),
			Today:       "2024-01-10",
		})
		if p.TotalCompleted != 0 {
			t.Errorf("TotalCompleted = %d, want 0", p.TotalCompleted)
		}
	})

	t.Run("completion on effective date counts", func(t *testing.T) {
		p := CalculateMechanismProgress(Input{
			Mechanism:   dailyMechanism(),
			Window:      calendar.Range{Start: "2024-01-01", End: "2024-01-10"},
			Exceptions:  ex,
			Completions: completions("2024-01-04"),
			Today:       "2024-01-10",
		})
		// Jan 4 hosts both its own occurrence and the moved Jan 3 one
		if p.TotalCompleted != 2 {
			t.Errorf("TotalCompleted = %d, want 2", p.TotalCompleted)
		}
		if p.TotalExpected != 10 {
			t.Errorf("TotalExpected = %d, want 10", p.TotalExpected)
		}
	})
}

func TestCalculateMechanismProgress_CompletionBeforeWindowStart(t *testing.T) {
	ex := calendar.NewExceptionIndex([]models.ScheduleException{
		{MechanismID: "m1", OriginalDate: "2024-01-05", MovedToDate: "2023-12-30"},
	})
	m := dailyMechanism()

	p := CalculateMechanismProgress(Input{
		Mechanism:   m,
		Window:      calendar.Range{Start: "2024-01-01", End: "2024-01-10"},
		Exceptions:  ex,
		Completions: completions("2023-12-30"),
		Today:       "2024-01-10",
	})
	if p.TotalCompleted != 0 {
		t.Errorf("TotalCompleted = %d, want 0 for completion before window start", p.TotalCompleted)
	}
}

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name  string
		done  []string
		today string
		want  int
	}{
		{"no completions", nil, "2024-01-05", 0},
		{"unbroken through today", []string{"2024-01-03", "2024-01-04", "2024-01-05"}, "2024-01-05", 3},
		{"today still open", []string{"2024-01-03", "2024-01-04"}, "2024-01-05", 2},
		{"yesterday missed", []string{"2024-01-02", "2024-01-03"}, "2024-01-05", 0},
		{"future completions ignored", []string{"2024-01-05", "2024-01-06"}, "2024-01-05", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculateMechanismProgress(Input{
				Mechanism:   dailyMechanism(),
				Exceptions:  calendar.NewExceptionIndex(nil),
				Completions: completions(tt.done...),
				Today:       tt.today,
			})
			if p.CurrentStreak != tt.want {
				t.Errorf("CurrentStreak = %d, want %d", p.CurrentStreak, tt.want)
			}
		})
	}
}

func TestPrediction(t *testing.T) {
	t.Run("single completion has no prediction", func(t *testing.T) {
		p := CalculateMechanismProgress(Input{
			Mechanism:   dailyMechanism(),
			Exceptions:  calendar.NewExceptionIndex(nil),
			Completions: completions("2024-01-01"),
			Today:       "2024-01-02",
		})
		if p.CompletionPredictionDays != nil {
			t.Errorf("expected nil prediction, got %d", *p.CompletionPredictionDays)
		}
	})

	t.Run("all done predicts zero", func(t *testing.T) {
		m := dailyMechanism()
		m.EndDate = "2024-01-02"
		p := CalculateMechanismProgress(Input{
			Mechanism:   m,
			Exceptions:  calendar.NewExceptionIndex(nil),
			Completions: completions("2024-01-01", "2024-01-02"),
			Today:       "2024-01-02",
		})
		if p.CompletionPredictionDays == nil || *p.CompletionPredictionDays != 0 {
			t.Errorf("CompletionPredictionDays = %v, want 0", p.CompletionPredictionDays)
		}
	})
}

func TestCalculateGoalProgress(t *testing.T) {
	five, nine := 5, 9
	mechs := []models.Progress{
		{TotalExpected: 10, TotalCompleted: 6, Percentage: 60, CurrentStreak: 3, LastCompletionDate: "2024-01-07", CompletionPredictionDays: &five},
		{TotalExpected: 4, TotalCompleted: 4, Percentage: 100, CurrentStreak: 4, LastCompletionDate: "2024-01-08", CompletionPredictionDays: &nine},
		{TotalExpected: 2, TotalCompleted: 1, Percentage: 50, CurrentStreak: 1},
	}

	p := CalculateGoalProgress(models.Goal{ID: "g1"}, mechs)
	if p.Percentage != 70 {
		t.Errorf("Percentage = %d, want 70", p.Percentage)
	}
	if p.TotalExpected != 16 || p.TotalCompleted != 11 {
		t.Errorf("totals = %d/%d, want 11/16", p.TotalCompleted, p.TotalExpected)
	}
	if p.CurrentStreak != 1 {
		t.Errorf("CurrentStreak = %d, want 1", p.CurrentStreak)
	}
	if p.LastCompletionDate != "2024-01-08" {
		t.Errorf("LastCompletionDate = %q", p.LastCompletionDate)
	}
	if p.CompletionPredictionDays == nil || *p.CompletionPredictionDays != 9 {
		t.Errorf("CompletionPredictionDays = %v, want 9", p.CompletionPredictionDays)
	}

	completed := CalculateGoalProgress(models.Goal{ID: "g1", Completed: true}, mechs)
	if completed.Percentage != 100 {
		t.Errorf("completed goal Percentage = %d, want 100", completed.Percentage)
	}

	empty := CalculateGoalProgress(models.Goal{ID: "g2"}, nil)
	if empty.Percentage != 0 {
		t.Errorf("empty goal Percentage = %d, want 0", empty.Percentage)
	}
}

func TestComplete(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	goal := models.Goal{ID: "g1", UserID: "u1"}

	tests := []struct {
		name       string
		pct        int
		supervisor bool
		wantErr    error
	}{
		{"supervisor at 100", 100, true, nil},
		{"supervisor below 100", 99, true, errors.ErrPreconditionNotMet},
		{"participant at 100", 100, false, errors.ErrPermissionDenied},
		{"participant below 100 reports progress first", 40, false, errors.ErrPreconditionNotMet},
		{"over 100 is not exactly complete", 120, true, errors.ErrPreconditionNotMet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Complete(goal, tt.pct, "sup-1", tt.supervisor, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !got.Completed || got.CompletedBy != "sup-1" || got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
					t.Errorf("goal not marked complete: %+v", got)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got.Completed {
				t.Error("goal must stay in progress when the gate rejects")
			}
			var gateErr GateError
			if !errors.As(err, &gateErr) || gateErr.GoalID != "g1" {
				t.Errorf("expected GateError for g1, got %T", err)
			}
		})
	}
}

func TestGatePercentage(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	full := models.Progress{TotalExpected: 3, TotalCompleted: 3, Percentage: 100}

	tests := []struct {
		name        string
		mechs       []models.Progress
		wantDisplay int
		wantGate    int
		wantErr     error
	}{
		{"all mechanisms finished", []models.Progress{full, full, full, full}, 100, 100, nil},
		{
			"one mechanism just short rounds to 100 for display",
			[]models.Progress{full, full, full, {TotalExpected: 200, TotalCompleted: 199, Percentage: 99}},
			100, 99, errors.ErrPreconditionNotMet,
		},
		{"zero expected counts as not started", []models.Progress{full, {}}, 50, 50, errors.ErrPreconditionNotMet},
		{"no mechanisms", nil, 0, 0, errors.ErrPreconditionNotMet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal := models.Goal{ID: "g1", UserID: "u1"}
			if got := CalculateGoalProgress(goal, tt.mechs).Percentage; got != tt.wantDisplay {
				t.Errorf("display Percentage = %d, want %d", got, tt.wantDisplay)
			}
			gate := GatePercentage(tt.mechs)
			if gate != tt.wantGate {
				t.Fatalf("GatePercentage = %d, want %d", gate, tt.wantGate)
			}
			got, err := Complete(goal, gate, "sup-1", true, now)
			if tt.wantErr == nil {
				if err != nil || !got.Completed {
					t.Fatalf("Complete = %+v, %v; want completed", got, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGateMessagesDiffer(t *testing.T) {
	_, progressErr := Complete(models.Goal{ID: "g1"}, 50, "u1", true, time.Now())
	_, roleErr := Complete(models.Goal{ID: "g1"}, 100, "u1", false, time.Now())
	if progressErr.Error() == roleErr.Error() {
		t.Errorf("gate errors should be distinguishable, both were %q", progressErr.Error())
	}
}

func TestReopen(t *testing.T) {
	at := time.Now()
	goal := models.Goal{ID: "g1", Completed: true, CompletedBy: "sup-1", CompletedAt: &at}

	if _, err := Reopen(goal, false); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("participant reopen error = %v, want ErrPermissionDenied", err)
	}

	got, err := Reopen(goal, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Completed || got.CompletedBy != "" || got.CompletedAt != nil {
		t.Errorf("goal not reopened: %+v", got)
	}
	if p := CalculateGoalProgress(got, []models.Progress{{Percentage: 40}}); p.Percentage != 40 {
		t.Errorf("reopened goal Percentage = %d, want live 40", p.Percentage)
	}
}
