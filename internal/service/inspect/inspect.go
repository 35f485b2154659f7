package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	alarmrepo "github.com/oshokin/bell-scheduler/internal/repository/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
)

// SoundCheck is the result of validating one sound file.
type SoundCheck struct {
	// File describes the validated sound.
	File *sound.File
	// Player is the program that would play it, empty when none is installed.
	Player string
	// Played reports whether playback was started.
	Played bool
}

// LedgerSnapshot is the content of the ledger for one day.
type LedgerSnapshot struct {
	// Path is the ledger file location.
	Path string
	// Date is the calendar day the keys belong to.
	Date string
	// Keys are the fired occurrences in sorted order.
	Keys []string
}

// ListAlarms returns every alarm, or only those of day when it is not empty.
func ListAlarms(ctx context.Context, source alarmrepo.Source, day string) ([]domain.Alarm, error) {
	alarms, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	if day == "" {
		return alarms, nil
	}

	weekday, err := domain.ParseWeekday(day)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Alarm, 0, len(alarms))

	for _, a := range alarms {
		if a.Day == weekday {
			filtered = append(filtered, a)
		}
	}

	return filtered, nil
}

// CheckSound validates name and, when play is set, plays it through the gateway.
// A missing player is reported in the result rather than as an error unless
// playback was requested.
func CheckSound(
	ctx context.Context,
	library *sound.Library,
	player *playback.Gateway,
	name string,
	play bool,
) (*SoundCheck, error) {
	file, err := library.Validate(name)
	if err != nil {
		return nil, err
	}

	check := &SoundCheck{File: file}

	candidate, _, err := player.Select()
	if err != nil && !errors.Is(err, playback.ErrNoPlayer) {
		return nil, err
	}

	check.Player = candidate.Program

	if !play {
		return check, nil
	}

	if err = player.Play(ctx, file.Path); err != nil {
		return check, err
	}

	check.Played = true

	return check, nil
}

// ShowLedger reads the ledger for date under its lock.
func ShowLedger(ctx context.Context, l *ledger.FileLedger, date string) (*LedgerSnapshot, error) {
	unlock, err := l.Lock(ctx)
	if err != nil {
		return nil, err
	}

	defer unlock()

	l.Load(ctx, date)

	return &LedgerSnapshot{
		Path: l.Path(),
		Date: l.Date(),
		Keys: l.Keys(),
	}, nil
}

// ClearLedger empties the ledger for date and returns how many keys were dropped.
// Every alarm of the current minute may fire again afterwards.
func ClearLedger(ctx context.Context, l *ledger.FileLedger, date string) (int, error) {
	unlock, err := l.Lock(ctx)
	if err != nil {
		return 0, err
	}

	defer unlock()

	l.Load(ctx, date)

	removed := l.Len()

	l.Clear()

	if err = l.Persist(ctx); err != nil {
		return 0, err
	}

	return removed, nil
}

// WriteAlarms renders alarms as an aligned table.
func WriteAlarms(w io.Writer, alarms []domain.Alarm) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "ID\tDAY\tTIME\tLABEL\tSOUND\tENABLED")

	for _, a := range alarms {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			a.ID, a.Day, a.Time, a.DisplayLabel(), a.Sound, a.Enabled)
	}

	return tw.Flush()
}

// WriteSounds renders sound files with their size and age.
func WriteSounds(w io.Writer, files []sound.File) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tMODIFIED")

	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			f.Name, f.Extension, humanize.Bytes(uint64(f.Size)), humanize.Time(f.Modified)) //nolint:gosec // Sizes are never negative.
	}

	return tw.Flush()
}

// WriteSoundCheck renders the result of CheckSound.
func WriteSoundCheck(w io.Writer, check *SoundCheck) error {
	player := check.Player
	if player == "" {
		player = "none installed"
	}

	_, err := fmt.Fprintf(w, "%s: %s, %s\nplayer: %s\nplayed: %t\n",
		check.File.Name, check.File.Extension, humanize.Bytes(uint64(check.File.Size)), player, check.Played) //nolint:gosec // Sizes are never negative.

	return err
}

// WriteLedger renders a ledger snapshot, one key per line.
func WriteLedger(w io.Writer, snapshot *LedgerSnapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "ledger: %s\ndate: %s\nfired: %d\n", snapshot.Path, snapshot.Date, len(snapshot.Keys))

	for _, key := range snapshot.Keys {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())

	return err
}
