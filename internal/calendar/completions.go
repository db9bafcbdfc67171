package calendar

import (
	"sort"

	"github.com/julianstephens/cadence/internal/models"
)

type completionKey struct {
	mechanismID string
	date        string
}

// CompletionIndex is the set of completed (mechanism, effective date) pairs.
type CompletionIndex struct {
	set map[completionKey]models.Completion
}

func NewCompletionIndex(records []models.Completion) *CompletionIndex {
	x := &CompletionIndex{set: make(map[completionKey]models.Completion, len(records))}
	for _, rec := range records {
		x.set[completionKey{rec.MechanismID, rec.CompletedDate}] = rec
	}
	return x
}

// IsCompleted reports whether the occurrence landing on effectiveDate was performed.
func (x *CompletionIndex) IsCompleted(mechanismID, effectiveDate string) bool {
	if x == nil {
		return false
	}
	_, ok := x.set[completionKey{mechanismID, effectiveDate}]
	return ok
}

// Set marks or clears a completion and reports whether the set changed.
// Repeating the same value is a no-op.
func (x *CompletionIndex) Set(rec models.Completion, value bool) bool {
	key := completionKey{rec.MechanismID, rec.CompletedDate}
	_, present := x.set[key]
	switch {
	case value && !present:
		x.set[key] = rec
		return true
	case !value && present:
		delete(x.set, key)
		return true
	}
	return false
}

// Dates returns the completed dates of one mechanism in ascending order.
func (x *CompletionIndex) Dates(mechanismID string) []string {
	if x == nil {
		return nil
	}
	var out []string
	for key := range x.set {
		if key.mechanismID == mechanismID {
			out = append(out, key.date)
		}
	}
	sort.Strings(out)
	return out
}

func (x *CompletionIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.set)
}
