// Package calendar resolves exceptions and completions against a mechanism's
// expected occurrences and projects the result into activity instances.
package calendar

import (
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

// Range is an inclusive span of civil dates in YYYY-MM-DD form.
// A range with a missing bound or End before Start is empty.
type Range struct {
	Start string
	End   string
}

// NewRange validates both bounds and returns the range.
func NewRange(start, end string) (Range, error) {
	if err := utils.ValidateDate(start); err != nil {
		return Range{}, errors.Invalid("start date", start, err.Error())
	}
	if err := utils.ValidateDate(end); err != nil {
		return Range{}, errors.Invalid("end date", end, err.Error())
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) Empty() bool {
	return r.Start == "" || r.End == "" || r.End < r.Start
}

func (r Range) Contains(date string) bool {
	return !r.Empty() && date >= r.Start && date <= r.End
}

// Intersect returns the overlap of r and o.
func (r Range) Intersect(o Range) Range {
	out := r
	if o.Start > out.Start {
		out.Start = o.Start
	}
	if o.End < out.End {
		out.End = o.End
	}
	return out
}

// Bounds returns the effective [start, end] of a mechanism. Missing dates fall
// back to the participation's generation window.
func Bounds(m models.Mechanism, window models.GenerationWindow) Range {
	r := Range{Start: m.StartDate, End: m.EndDate}
	if r.Start == "" {
		r.Start = window.MechanismsStart
	}
	if r.End == "" {
		r.End = window.MechanismsEnd
	}
	return r
}
