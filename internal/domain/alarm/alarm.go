package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weekday is one of the seven English weekday names used by the alarms table.
type Weekday string

// Weekdays in the order the web application lists them.
const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// DefaultLabel is shown in logs for alarms without a label.
const DefaultLabel = "Alarm"

var (
	// ErrInvalidWeekday is returned for names outside the fixed weekday set.
	ErrInvalidWeekday = errors.New("invalid weekday")
	// ErrInvalidTime is returned for values that are not a 24-hour HH:MM time.
	ErrInvalidTime = errors.New("invalid time of day")
	// ErrInvalidAlarm is returned when a required alarm field is empty.
	ErrInvalidAlarm = errors.New("invalid alarm")
)

// ParseWeekday accepts a weekday name in any letter case.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays() {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// Weekdays returns all weekdays starting from Monday.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// WeekdayOf converts a time.Weekday into the alarms table representation.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday(d.String())
}

// String returns the weekday name.
func (d Weekday) String() string {
	return string(d)
}

// ClockTime is a wall-clock time of day with minute granularity.
type ClockTime struct {
	Hour   int
	Minute int
}

// Midnight is the day boundary.
//
//nolint:gochecknoglobals // Immutable value used as a named constant.
var Midnight = ClockTime{}

// ParseClockTime accepts HH:MM and HH:MM:SS. SQL TIME columns render seconds,
// which must be zero since alarms have minute granularity.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)

	layouts := []string{"15:04", "15:04:05"}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}

		if parsed.Second() != 0 {
			break
		}

		return ClockTime{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
	}

	return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// ClockTimeOf truncates t to its minute of day.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// String renders the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// WithSeconds renders the time as HH:MM:SS.
func (c ClockTime) WithSeconds() string {
	return c.String() + ":00"
}

// IsMidnight reports whether c is the day boundary.
func (c ClockTime) IsMidnight() bool {
	return c == Midnight
}

// Alarm is a weekly recurring bell, read-only to the scheduler.
type Alarm struct {
	// ID is the stable identifier assigned by the web application.
	ID string
	// Day is the weekday the alarm rings on.
	Day Weekday
	// Time is the minute of day the alarm rings at.
	Time ClockTime
	// Label is optional display text.
	Label string
	// Sound is the filename of the audio resource.
	Sound string
	// Enabled alarms are the only ones that ever match.
	Enabled bool
}

// Validate checks the invariants of a row read from storage.
func (a *Alarm) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAlarm)
	}

	if _, err := ParseWeekday(string(a.Day)); err != nil {
		return err
	}

	if a.Time.Hour < 0 || a.Time.Hour > 23 || a.Time.Minute < 0 || a.Time.Minute > 59 {
		return fmt.Errorf("%w: %s", ErrInvalidTime, a.Time)
	}

	return nil
}

// DueAt reports whether the alarm must ring at the given occurrence.
// Matching is exact to the minute; disabled alarms never match.
func (a *Alarm) DueAt(o Occurrence) bool {
	return a.Enabled && a.Day == o.Day && a.Time == o.Time
}

// KeyAt returns the ledger key of this alarm at occurrence o.
func (a *Alarm) KeyAt(o Occurrence) Key {
	return Key{
		AlarmID: a.ID,
		Time:    o.Time,
		Day:     o.Day,
	}
}

// DisplayLabel returns the label or DefaultLabel.
func (a *Alarm) DisplayLabel() string {
	if strings.TrimSpace(a.Label) == "" {
		return DefaultLabel
	}

	return a.Label
}
