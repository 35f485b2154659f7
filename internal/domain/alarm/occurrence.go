package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// dateLayout is the calendar date format stored alongside the ledger.
const dateLayout = "2006-01-02"

// keySeparator joins the ledger key fields.
const keySeparator = "|"

// ErrInvalidKey is returned when a persisted ledger key cannot be parsed.
var ErrInvalidKey = errors.New("invalid ledger key")

// Occurrence is the moment a tick observed, in the operational timezone.
type Occurrence struct {
	// Date is the calendar date, YYYY-MM-DD.
	Date string
	// Day is the weekday of Date.
	Day Weekday
	// Time is the minute of day.
	Time ClockTime
}

// OccurrenceAt converts now into loc and extracts the schedule coordinates.
func OccurrenceAt(now time.Time, loc *time.Location) Occurrence {
	if loc != nil {
		now = now.In(loc)
	}

	return Occurrence{
		Date: now.Format(dateLayout),
		Day:  WeekdayOf(now.Weekday()),
		Time: ClockTimeOf(now),
	}
}

// Key identifies one fired occurrence of one alarm.
// Including the time and day keeps an alarm that is moved mid-day eligible
// at its new slot.
type Key struct {
	AlarmID string
	Time    ClockTime
	Day     Weekday
}

// String renders the key as id|HH:MM|Day.
func (k Key) String() string {
	return k.AlarmID + keySeparator + k.Time.String() + keySeparator + string(k.Day)
}

// ParseKey parses the String form. The id is everything before the last two separators.
func ParseKey(s string) (Key, error) {
	dayAt := strings.LastIndex(s, keySeparator)
	if dayAt <= 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	timeAt := strings.LastIndex(s[:dayAt], keySeparator)
	if timeAt <= 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	day, err := ParseWeekday(s[dayAt+1:])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	clock, err := ParseClockTime(s[timeAt+1 : dayAt])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return Key{
		AlarmID: s[:timeAt],
		Time:    clock,
		Day:     day,
	}, nil
}

// Matches reports whether the key was recorded at occurrence o.
func (k Key) Matches(o Occurrence) bool {
	return k.Day == o.Day && k.Time == o.Time
}
