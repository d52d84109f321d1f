package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the four-digit-year ISO calendar date used for due dates.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// NewTimeOfDay returns the time of day h:m:s.
func NewTimeOfDay(h, m, s int) TimeOfDay {
	return TimeOfDay{Hour: h, Minute: m, Second: s}
}

// String formats t as HH:mm:ss.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the instant t falls on the given date, in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, t.Nanosecond, date.Location())
}

// HH:mm[:ss[.fraction]] with an optional zone designator, which is dropped.
var isoTimePattern = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?(?:Z|[+-]\d{2}:\d{2}(?::\d{2})?)?$`)

// ParseTimeOfDay parses ISO time-of-day text such as "23:59" or "04:20:42".
func ParseTimeOfDay(text string) (TimeOfDay, error) {
	m := isoTimePattern.FindStringSubmatch(text)
	if m == nil {
		return TimeOfDay{}, &FormatError{Field: "due time", Text: text}
	}

	var t TimeOfDay
	t.Hour, _ = strconv.Atoi(m[1])
	t.Minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		t.Second, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		frac := m[4] + strings.Repeat("0", 9-len(m[4]))
		t.Nanosecond, _ = strconv.Atoi(frac)
	}

	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return TimeOfDay{}, &FormatError{Field: "due time", Text: text, Err: fmt.Errorf("out of range")}
	}
	return t, nil
}

// ParseDate parses yyyy-MM-dd text into a UTC midnight.
func ParseDate(text string) (time.Time, error) {
	date, err := time.Parse(DateLayout, text)
	if err != nil {
		return time.Time{}, &FormatError{Field: "due date", Text: text, Err: err}
	}
	return date, nil
}

// FormatDate formats the calendar date of t as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// truncateDate drops the clock part of t, keeping its calendar date.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateDueInput checks raw due date and time text the way an editor form
// does before applying it: each must parse when non-empty, and a time
// requires a date.
func ValidateDueInput(dateText, timeText string) error {
	if dateText != "" {
		if _, err := ParseDate(dateText); err != nil {
			return err
		}
	}
	if timeText != "" {
		if _, err := ParseTimeOfDay(timeText); err != nil {
			return err
		}
		if dateText == "" {
			return fmt.Errorf("%w: due time requires a due date", ErrIllegalArgument)
		}
	}
	return nil
}
