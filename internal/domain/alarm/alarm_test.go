package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParseWeekday accepts any letter case and rejects unknown names.
func TestParseWeekday(t *testing.T) {
	t.Parallel()

	d, err := ParseWeekday(" monday ")
	require.NoError(t, err)
	require.Equal(t, Monday, d)

	d, err = ParseWeekday("SUNDAY")
	require.NoError(t, err)
	require.Equal(t, Sunday, d)

	_, err = ParseWeekday("Funday")
	require.ErrorIs(t, err, ErrInvalidWeekday)
}

// TestParseClockTime covers minute and second layouts plus invalid values.
func TestParseClockTime(t *testing.T) {
	t.Parallel()

	valid := map[string]ClockTime{
		"08:00":    {Hour: 8, Minute: 0},
		"23:59":    {Hour: 23, Minute: 59},
		"00:00":    Midnight,
		"07:45:00": {Hour: 7, Minute: 45},
	}
	for s, want := range valid {
		got, err := ParseClockTime(s)
		require.NoError(t, err, s)
		require.Equal(t, want, got, s)
	}

	for _, s := range []string{"24:00", "12:60", "noon", "", "07:45:30"} {
		_, err := ParseClockTime(s)
		require.ErrorIs(t, err, ErrInvalidTime, s)
	}

	require.Equal(t, "08:05", ClockTime{Hour: 8, Minute: 5}.String())
	require.Equal(t, "08:05:00", ClockTime{Hour: 8, Minute: 5}.WithSeconds())
	require.True(t, Midnight.IsMidnight())
}

// TestAlarm_DueAt checks exact-minute matching and disabled suppression.
func TestAlarm_DueAt(t *testing.T) {
	t.Parallel()

	a := Alarm{
		ID:      "A1",
		Day:     Monday,
		Time:    ClockTime{Hour: 8},
		Sound:   "bell.mp3",
		Enabled: true,
	}

	at := Occurrence{Date: "2026-10-19", Day: Monday, Time: ClockTime{Hour: 8}}
	require.True(t, a.DueAt(at))

	require.False(t, a.DueAt(Occurrence{Day: Monday, Time: ClockTime{Hour: 8, Minute: 1}}))
	require.False(t, a.DueAt(Occurrence{Day: Tuesday, Time: ClockTime{Hour: 8}}))

	a.Enabled = false
	require.False(t, a.DueAt(at))
}

// TestAlarm_Validate rejects rows that violate the data model.
func TestAlarm_Validate(t *testing.T) {
	t.Parallel()

	ok := Alarm{ID: "A1", Day: Friday, Time: ClockTime{Hour: 12}}
	require.NoError(t, ok.Validate())

	noID := ok
	noID.ID = " "
	require.ErrorIs(t, noID.Validate(), ErrInvalidAlarm)

	badDay := ok
	badDay.Day = "Caturday"
	require.ErrorIs(t, badDay.Validate(), ErrInvalidWeekday)

	badTime := ok
	badTime.Time = ClockTime{Hour: 25}
	require.ErrorIs(t, badTime.Validate(), ErrInvalidTime)
}

// TestAlarm_DisplayLabel falls back to the default label.
func TestAlarm_DisplayLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultLabel, (&Alarm{}).DisplayLabel())
	require.Equal(t, "Recess", (&Alarm{Label: "Recess"}).DisplayLabel())
}

// TestOccurrenceAt converts into the operational timezone.
func TestOccurrenceAt(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	// Sunday 22:30 UTC is already Monday in Jerusalem.
	now := time.Date(2026, time.October, 18, 22, 30, 0, 0, time.UTC)

	o := OccurrenceAt(now, loc)
	require.Equal(t, Monday, o.Day)
	require.Equal(t, "2026-10-19", o.Date)
	require.Equal(t, "01:30", o.Time.String())

	utc := OccurrenceAt(now, nil)
	require.Equal(t, Sunday, utc.Day)
}

// TestKey_StringAndParse covers the id|HH:MM|Day form.
func TestKey_StringAndParse(t *testing.T) {
	t.Parallel()

	a := Alarm{ID: "A1", Day: Monday, Time: ClockTime{Hour: 8}, Enabled: true}
	o := Occurrence{Day: Monday, Time: ClockTime{Hour: 8}}

	key := a.KeyAt(o)
	require.Equal(t, "A1|08:00|Monday", key.String())
	require.True(t, key.Matches(o))

	parsed, err := ParseKey("with|pipe|08:00|Monday")
	require.NoError(t, err)
	require.Equal(t, "with|pipe", parsed.AlarmID)
	require.Equal(t, Monday, parsed.Day)

	for _, s := range []string{"", "A1", "A1|08:00", "|08:00|Monday", "A1|8am|Monday", "A1|08:00|Someday"} {
		_, err = ParseKey(s)
		require.ErrorIs(t, err, ErrInvalidKey, s)
	}
}
