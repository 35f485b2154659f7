package inspect

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/bell-scheduler/internal/config"
	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	"github.com/oshokin/bell-scheduler/internal/logger"
	alarmrepo "github.com/oshokin/bell-scheduler/internal/repository/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
	"github.com/oshokin/bell-scheduler/internal/service/scheduler"
)

// RunAlarms prints the alarms stored in the database.
func RunAlarms(ctx context.Context, opts *scheduler.Options, day string, w io.Writer) error {
	ctx = logger.WithName(ctx, "alarms")

	cfg, err := scheduler.LoadConfig(opts)
	if err != nil {
		return err
	}

	source, err := alarmrepo.Open(ctx, alarmrepo.Dialect(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open alarm database: %w", err)
	}

	defer func() {
		_ = source.Close()
	}()

	alarms, err := ListAlarms(ctx, source, day)
	if err != nil {
		return err
	}

	return WriteAlarms(w, alarms)
}

// RunSounds prints the playable files of the sound directory.
func RunSounds(_ context.Context, opts *scheduler.Options, w io.Writer) error {
	cfg, err := scheduler.LoadConfig(opts)
	if err != nil {
		return err
	}

	files, err := sound.NewLibrary(cfg.SoundDir).List()
	if err != nil {
		return fmt.Errorf("list sounds: %w", err)
	}

	return WriteSounds(w, files)
}

// RunSoundTest validates one sound and optionally plays it.
func RunSoundTest(ctx context.Context, opts *scheduler.Options, name string, play bool, w io.Writer) error {
	ctx = logger.WithName(ctx, "sounds")

	cfg, err := scheduler.LoadConfig(opts)
	if err != nil {
		return err
	}

	player, err := playback.NewGateway(cfg.Players, playback.WithInterruptPrevious(cfg.InterruptPrevious))
	if err != nil {
		return fmt.Errorf("create playback gateway: %w", err)
	}

	check, err := CheckSound(ctx, sound.NewLibrary(cfg.SoundDir), player, name, play)
	if err != nil {
		return err
	}

	return WriteSoundCheck(w, check)
}

// RunLedgerShow prints today's fired occurrences.
func RunLedgerShow(ctx context.Context, opts *scheduler.Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "ledger")

	cfg, l, date, err := openLedger(opts)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Reading ledger", "path", cfg.LedgerFile, "date", date)

	snapshot, err := ShowLedger(ctx, l, date)
	if err != nil {
		return err
	}

	return WriteLedger(w, snapshot)
}

// RunLedgerClear forgets today's fired occurrences.
func RunLedgerClear(ctx context.Context, opts *scheduler.Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "ledger")

	cfg, l, date, err := openLedger(opts)
	if err != nil {
		return err
	}

	removed, err := ClearLedger(ctx, l, date)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Ledger cleared", "path", cfg.LedgerFile, "removed", removed)

	_, err = fmt.Fprintf(w, "cleared %d fired occurrences from %s\n", removed, cfg.LedgerFile)

	return err
}

// openLedger builds the configured ledger and today's date in the operational timezone.
func openLedger(opts *scheduler.Options) (*config.Config, *ledger.FileLedger, string, error) {
	cfg, err := scheduler.LoadConfig(opts)
	if err != nil {
		return nil, nil, "", err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, "", fmt.Errorf("load timezone: %w", err)
	}

	l := ledger.NewFileLedger(cfg.LedgerFile, ledger.WithLockTimeout(cfg.LockTimeout))

	return cfg, l, domain.OccurrenceAt(time.Now(), loc).Date, nil
}
