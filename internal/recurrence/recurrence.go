// Package recurrence expands a mechanism's frequency rule into concrete dates.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/utils"
)

// weekdayRules maps the fixed-weekday frequencies onto the weekdays they land on.
var weekdayRules = map[constants.Frequency][]time.Weekday{
	constants.Frequency2xWeek: {time.Tuesday, time.Thursday},
	constants.Frequency3xWeek: {time.Monday, time.Wednesday, time.Friday},
	constants.Frequency4xWeek: {time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	constants.Frequency5xWeek: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	constants.FrequencyWeekly: {constants.WeeklyWeekday},
}

// Weekdays returns the weekdays a fixed-weekday frequency lands on, or nil
// for daily and anchored frequencies.
func Weekdays(freq constants.Frequency) []time.Weekday {
	return weekdayRules[freq]
}

// IsAnchored reports whether occurrences of freq are phased from the
// mechanism's own start date rather than from the calendar.
func IsAnchored(freq constants.Frequency) bool {
	switch freq {
	case constants.FrequencyBiweekly, constants.FrequencyMonthly, constants.FrequencyYearly:
		return true
	}
	return false
}

// Schedule renders when freq lands, for listings. Anchored frequencies are
// described relative to anchor; a zero anchor means the start is not known yet.
func Schedule(freq constants.Frequency, anchor time.Time) string {
	if days := Weekdays(freq); days != nil {
		names := make([]string, len(days))
		for i, wd := range days {
			names[i] = wd.String()[:3]
		}
		return strings.Join(names, ",")
	}
	if !IsAnchored(freq) {
		return "every day"
	}
	if anchor.IsZero() {
		return "from start"
	}
	switch freq {
	case constants.FrequencyBiweekly:
		return fmt.Sprintf("every %dd from %s", constants.BiweeklyIntervalDays, utils.FormatDate(anchor))
	case constants.FrequencyMonthly:
		return fmt.Sprintf("day %d", anchor.Day())
	}
	return anchor.Format("Jan 2")
}

// Occurs determines whether a mechanism with the given frequency and anchor
// (its effective start date) has an occurrence on date.
func Occurs(freq constants.Frequency, anchor, date time.Time) bool {
	switch freq {
	case constants.FrequencyDaily:
		return true
	case constants.Frequency2xWeek, constants.Frequency3xWeek, constants.Frequency4xWeek,
		constants.Frequency5xWeek, constants.FrequencyWeekly:
		for _, wd := range weekdayRules[freq] {
			if date.Weekday() == wd {
				return true
			}
		}
		return false
	case constants.FrequencyBiweekly:
		days := utils.DaysBetween(anchor, date)
		return days >= 0 && days%constants.BiweeklyIntervalDays == 0
	case constants.FrequencyMonthly:
		// Months without the anchor's day (e.g. the 31st in April) are skipped
		if date.Before(anchor) {
			return false
		}
		return date.Day() == anchor.Day()
	case constants.FrequencyYearly:
		// Feb 29 anchors only occur in leap years
		if date.Before(anchor) {
			return false
		}
		return date.Month() == anchor.Month() && date.Day() == anchor.Day()
	default:
		return false
	}
}

// Expand returns every occurrence of freq between from and to inclusive, in
// ascending order. Anchored frequencies are phased from anchor. An inverted
// range yields no dates.
func Expand(freq constants.Frequency, anchor, from, to time.Time) []time.Time {
	from = truncate(from)
	to = truncate(to)
	anchor = truncate(anchor)
	if to.Before(from) {
		return nil
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if Occurs(freq, anchor, d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// ExpandDates is Expand over YYYY-MM-DD strings.
func ExpandDates(freq constants.Frequency, anchor, from, to string) ([]string, error) {
	a, err := utils.ParseDate(anchor)
	if err != nil {
		return nil, err
	}
	f, err := utils.ParseDate(from)
	if err != nil {
		return nil, err
	}
	t, err := utils.ParseDate(to)
	if err != nil {
		return nil, err
	}

	dates := Expand(freq, a, f, t)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = utils.FormatDate(d)
	}
	return out, nil
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
