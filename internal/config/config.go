package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/bell-scheduler/internal/logger"

	// Appliances often ship without a zoneinfo database.
	_ "time/tzdata"
)

// Config holds the settings shared by every bell-scheduler subcommand.
type Config struct {
	// Timezone is the IANA zone in which alarm days and times are evaluated.
	Timezone string `yaml:"timezone"`
	// LedgerFile is where the fired-occurrence ledger is persisted.
	LedgerFile string `yaml:"ledger_file"`
	// LockTimeout bounds how long a tick waits for the ledger lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// SoundDir is the directory alarm sound filenames are resolved against.
	SoundDir string `yaml:"sound_dir"`
	// Players lists playback command templates in priority order.
	Players []string `yaml:"players"`
	// InterruptPrevious stops a still-running player before starting a new bell.
	InterruptPrevious bool `yaml:"interrupt_previous"`
	// Schedule is the cron expression used by the built-in driver.
	Schedule string `yaml:"schedule"`
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
	// Database describes where alarm definitions are read from.
	Database Database `yaml:"database"`
	// Metrics configures prometheus export.
	Metrics Metrics `yaml:"metrics"`
	// MQTT configures bell announcements to signage screens.
	MQTT MQTT `yaml:"mqtt"`
	// Relay configures an optional GPIO-driven bell relay.
	Relay Relay `yaml:"relay"`
}

// Database selects the alarm source.
type Database struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn"`
}

// Metrics controls prometheus export.
type Metrics struct {
	// Textfile is written after every tick for the node_exporter textfile collector.
	Textfile string `yaml:"textfile"`
	// ListenAddress serves /metrics while the built-in driver runs.
	ListenAddress string `yaml:"listen_addr"`
}

// MQTT configures the announcement publisher. An empty Broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// Relay configures the GPIO bell relay. An empty Chip disables it.
type Relay struct {
	Chip  string        `yaml:"chip"`
	Line  int           `yaml:"line"`
	Pulse time.Duration `yaml:"pulse"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "bell-scheduler.yaml"

	// DefaultTimezone is the operational timezone of the appliance.
	DefaultTimezone = "Asia/Jerusalem"

	// DefaultLedgerFile is the default location of the fired-occurrence ledger.
	DefaultLedgerFile = "/tmp/bellapp_triggered_alarms.json"

	// DefaultSoundDir is where uploaded sounds are stored by the web application.
	DefaultSoundDir = "public/audio"

	// DefaultLockTimeout is below one minute so a stuck tick never overlaps two schedules.
	DefaultLockTimeout = 45 * time.Second

	// DefaultSchedule fires the built-in driver every minute.
	DefaultSchedule = "* * * * *"

	// DefaultDatabaseDriver is the embedded SQLite database of the appliance.
	DefaultDatabaseDriver = "sqlite"

	// DefaultDatabaseDSN is the Laravel default SQLite location.
	DefaultDatabaseDSN = "database/database.sqlite"

	// DefaultMQTTTopic is where bell announcements are published.
	DefaultMQTTTopic = "bellapp/alarms/fired"

	// DefaultMQTTClientID identifies the scheduler on the broker.
	DefaultMQTTClientID = "bell-scheduler"

	// DefaultRelayPulse is how long the relay line is held high.
	DefaultRelayPulse = 3 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultPlayers returns the playback candidates in priority order.
func DefaultPlayers() []string {
	return []string{
		"mpg123 -q {file}",
		"aplay {file}",
		"cvlc --play-and-exit {file}",
		"ffplay -nodisp -autoexit -loglevel quiet {file}",
	}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for unsupported database drivers.
	errUnknownDriver = errors.New("unknown database driver")
	// errInvalidSchedule is returned when the cron expression cannot be parsed.
	errInvalidSchedule = errors.New("invalid schedule expression")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("invalid log level")
	// errDSNRequired is returned when a non-default driver has no DSN.
	errDSNRequired = errors.New("database dsn must be provided")
	// errInvalidRelayLine is returned for negative GPIO offsets.
	errInvalidRelayLine = errors.New("relay line must not be negative")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Validate only fails on user-supplied values, which are empty here.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks user-supplied values and fills defaults for empty ones.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.LedgerFile == "" {
		cfg.LedgerFile = DefaultLedgerFile
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	if cfg.SoundDir == "" {
		cfg.SoundDir = DefaultSoundDir
	}

	if len(cfg.Players) == 0 {
		cfg.Players = DefaultPlayers()
	}

	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	if !gronx.New().IsValid(cfg.Schedule) {
		return fmt.Errorf("%w: %q", errInvalidSchedule, cfg.Schedule)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = DefaultMQTTTopic
		}

		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = DefaultMQTTClientID
		}
	}

	if cfg.Relay.Chip != "" {
		if cfg.Relay.Line < 0 {
			return errInvalidRelayLine
		}

		if cfg.Relay.Pulse <= 0 {
			cfg.Relay.Pulse = DefaultRelayPulse
		}
	}

	return nil
}

// Location returns the parsed operational timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func validateDatabase(db *Database) error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))

	switch db.Driver {
	case "":
		db.Driver = DefaultDatabaseDriver
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, db.Driver)
	}

	if db.DSN == "" && db.Driver == DefaultDatabaseDriver {
		db.DSN = DefaultDatabaseDSN
	}

	if db.DSN == "" {
		return fmt.Errorf("%w for driver %q", errDSNRequired, db.Driver)
	}

	return nil
}
