package validation

import (
	"fmt"
	"strings"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictInvalidFrequency     ConflictType = "invalid_frequency"
	ConflictInvalidDate          ConflictType = "invalid_date"
	ConflictInvertedRange        ConflictType = "inverted_range"
	ConflictMechanismCount       ConflictType = "mechanism_count"
	ConflictMissingDescription   ConflictType = "missing_description"
	ConflictDuplicateDescription ConflictType = "duplicate_description"
	ConflictOutsideWindow        ConflictType = "outside_window"
)

// Conflict represents a detected problem in a goal or its mechanisms
type Conflict struct {
	Type         ConflictType
	Description  string
	Items        []string // Mechanism descriptions involved
	MechanismIDs []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator validates goals and mechanisms
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateMechanism returns the first problem with a single mechanism as a
// validation error, or nil.
func (v *Validator) ValidateMechanism(m models.Mechanism) error {
	result := ValidationResult{}
	v.checkMechanism(&result, m, models.GenerationWindow{})
	if !result.HasConflicts() {
		return nil
	}
	c := result.Conflicts[0]
	return errors.Invalid(string(c.Type), strings.Join(c.Items, ","), c.Description)
}

// ValidateGoal checks a goal and the full set of its mechanisms. window may be
// zero, in which case mechanism dates are not checked against it.
func (v *Validator) ValidateGoal(goal models.Goal, mechanisms []models.Mechanism, window models.GenerationWindow) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if strings.TrimSpace(goal.Description) == "" {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictMissingDescription,
			Description: "Goal description is required",
		})
	}

	if n := len(mechanisms); n < constants.MinMechanismsPerGoal || n > constants.MaxMechanismsPerGoal {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type: ConflictMechanismCount,
			Description: fmt.Sprintf("Goal \"%s\" has %d mechanisms, it needs between %d and %d",
				goal.Description, n, constants.MinMechanismsPerGoal, constants.MaxMechanismsPerGoal),
		})
	}

	byDescription := make(map[string][]string)
	for _, m := range mechanisms {
		v.checkMechanism(&result, m, window)
		key := strings.ToLower(strings.TrimSpace(m.Description))
		if key == "" {
			continue
		}
		byDescription[key] = append(byDescription[key], m.ID)
	}

	for _, m := range mechanisms {
		key := strings.ToLower(strings.TrimSpace(m.Description))
		ids := byDescription[key]
		if len(ids) < 2 || ids[0] != m.ID {
			continue
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:         ConflictDuplicateDescription,
			Description:  fmt.Sprintf("Duplicate mechanism: \"%s\" (IDs: %v)", m.Description, ids),
			Items:        []string{m.Description},
			MechanismIDs: ids,
		})
	}

	return result
}

func (v *Validator) checkMechanism(result *ValidationResult, m models.Mechanism, window models.GenerationWindow) {
	name := m.Description
	conflict := func(t ConflictType, format string, args ...any) {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:         t,
			Description:  fmt.Sprintf(format, args...),
			Items:        []string{name},
			MechanismIDs: []string{m.ID},
		})
	}

	if strings.TrimSpace(m.Description) == "" {
		conflict(ConflictMissingDescription, "Mechanism %s has no description", m.ID)
	}
	if !constants.IsValidFrequency(m.Frequency) {
		conflict(ConflictInvalidFrequency, "Mechanism \"%s\" has unknown frequency %q", name, m.Frequency)
	}

	datesOK := true
	for _, d := range []struct{ label, value string }{{"start_date", m.StartDate}, {"end_date", m.EndDate}} {
		if d.value == "" {
			continue
		}
		if err := utils.ValidateDate(d.value); err != nil {
			conflict(ConflictInvalidDate, "Mechanism \"%s\" has invalid %s: %v", name, d.label, err)
			datesOK = false
		}
	}
	if !datesOK {
		return
	}

	if m.StartDate != "" && m.EndDate != "" && m.StartDate > m.EndDate {
		conflict(ConflictInvertedRange, "Mechanism \"%s\" starts on %s after it ends on %s", name, m.StartDate, m.EndDate)
	}

	if window.IsZero() {
		return
	}
	if m.StartDate != "" && window.MechanismsStart != "" && m.StartDate < window.MechanismsStart {
		conflict(ConflictOutsideWindow, "Mechanism \"%s\" starts before the generation window (%s)", name, window.MechanismsStart)
	}
	if m.EndDate != "" && window.MechanismsEnd != "" && m.EndDate > window.MechanismsEnd {
		conflict(ConflictOutsideWindow, "Mechanism \"%s\" ends after the generation window (%s)", name, window.MechanismsEnd)
	}
}
