package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
)

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
// Calendar arithmetic is done in UTC so DST shifts never skip or repeat a day.
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(constants.DateFormat, dateStr)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// ValidateDate checks that dateStr is a real calendar date inside the supported window.
func ValidateDate(dateStr string) error {
	if _, err := ParseDate(dateStr); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	if dateStr < constants.MinSupportedDate || dateStr > constants.MaxSupportedDate {
		return fmt.Errorf("outside supported range %s..%s", constants.MinSupportedDate, constants.MaxSupportedDate)
	}
	return nil
}

// AddDays shifts a YYYY-MM-DD string by n days.
func AddDays(dateStr string, n int) (string, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns the number of calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// StartOfWeek returns the Monday of the ISO week containing dateStr.
func StartOfWeek(dateStr string) (string, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return FormatDate(t.AddDate(0, 0, -offset)), nil
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// GetTodayInTimezone returns today's date string (YYYY-MM-DD) in the specified timezone.
func GetTodayInTimezone(timezone string) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc).Format(constants.DateFormat), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}
