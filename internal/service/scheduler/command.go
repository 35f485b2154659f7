package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/bell-scheduler/internal/config"
	"github.com/oshokin/bell-scheduler/internal/logger"
	"github.com/oshokin/bell-scheduler/internal/metrics"
	alarmrepo "github.com/oshokin/bell-scheduler/internal/repository/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/notify"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
)

// Options controls how the scheduler is built from configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LedgerFile overrides the ledger location from configuration.
	LedgerFile string
	// SoundDir overrides the sound directory from configuration.
	SoundDir string
	// DatabaseDSN overrides the alarm database DSN from configuration.
	DatabaseDSN string
}

// LoadConfig reads the configuration file and applies command line overrides.
// It also applies the configured log level.
func LoadConfig(opts *Options) (*config.Config, error) {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Command line arguments override the file.
	if opts.LedgerFile != "" {
		cfg.LedgerFile = opts.LedgerFile
	}

	if opts.SoundDir != "" {
		cfg.SoundDir = opts.SoundDir
	}

	if opts.DatabaseDSN != "" {
		cfg.Database.DSN = opts.DatabaseDSN
	}

	// Validate already accepted the level, so ok is always true here.
	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	return cfg, nil
}

// Runtime bundles the components built from one configuration.
type Runtime struct {
	// Config is the effective configuration.
	Config *config.Config
	// Scheduler fires due alarms.
	Scheduler *Scheduler
	// Metrics collects tick outcomes.
	Metrics *metrics.Registry
	// Ledger is the fired-occurrence ledger.
	Ledger *ledger.FileLedger
	// Sounds is the sound library.
	Sounds *sound.Library
	// Player is the playback gateway.
	Player *playback.Gateway
	// source is the alarm database.
	source *alarmrepo.SQLSource
	// notifier announces fired alarms.
	notifier notify.Multi
}

// NewRuntime opens the alarm database and wires every component.
// Optional notifiers that cannot be reached are logged and left out.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	// Build the playback gateway first, it only validates templates.
	player, err := playback.NewGateway(cfg.Players, playback.WithInterruptPrevious(cfg.InterruptPrevious))
	if err != nil {
		return nil, fmt.Errorf("create playback gateway: %w", err)
	}

	// Open the read-only alarm database.
	source, err := alarmrepo.Open(ctx, alarmrepo.Dialect(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open alarm database: %w", err)
	}

	rt := &Runtime{
		Config:   cfg,
		Metrics:  metrics.New(),
		Ledger:   ledger.NewFileLedger(cfg.LedgerFile, ledger.WithLockTimeout(cfg.LockTimeout)),
		Sounds:   sound.NewLibrary(cfg.SoundDir),
		Player:   player,
		source:   source,
		notifier: openNotifiers(ctx, cfg),
	}

	opts := []Option{
		WithLocation(loc),
		WithMetrics(rt.Metrics),
	}

	if len(rt.notifier) > 0 {
		actor, detectErr := notify.DetectActor()
		if detectErr != nil {
			logger.WarnKV(ctx, "Failed to detect actor", "error", detectErr)
		}

		opts = append(opts, WithNotifier(rt.notifier), WithActor(actor))
	}

	rt.Scheduler = New(source, rt.Ledger, rt.Sounds, player, opts...)

	return rt, nil
}

// Tick runs one scheduler tick and exports metrics.
func (r *Runtime) Tick(ctx context.Context) *Report {
	report := r.Scheduler.Tick(ctx)

	if path := r.Config.Metrics.Textfile; path != "" {
		if err := r.Metrics.WriteTextfile(path); err != nil {
			logger.WarnKV(ctx, "Failed to write metrics textfile", "path", path, "error", err)
		}
	}

	return report
}

// Close releases the database and the notifiers.
func (r *Runtime) Close() error {
	return errors.Join(r.notifier.Close(), r.source.Close())
}

// RunTick performs a single tick, the unit of work of a cron-driven deployment.
// Per-alarm problems never make it fail; only configuration and database
// errors do.
func RunTick(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "bell-scheduler")

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	// Ensure resources are released on exit.
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to release resources", "error", closeErr)
		}
	}()

	rt.Tick(ctx)

	return nil
}

// openNotifiers connects the configured announcement channels.
func openNotifiers(ctx context.Context, cfg *config.Config) notify.Multi {
	var notifiers notify.Multi

	if cfg.MQTT.Broker != "" {
		publisher, err := notify.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			logger.WarnKV(ctx, "MQTT announcements disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			notifiers = append(notifiers, publisher)
		}
	}

	if cfg.Relay.Chip != "" {
		line, err := notify.OpenGPIOLine(cfg.Relay.Chip, cfg.Relay.Line)
		if err != nil {
			logger.WarnKV(ctx, "Bell relay disabled", "chip", cfg.Relay.Chip, "line", cfg.Relay.Line, "error", err)
		} else {
			notifiers = append(notifiers, notify.NewRelay(line, cfg.Relay.Pulse))
		}
	}

	return notifiers
}
