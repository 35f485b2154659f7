package integration

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/bell-scheduler/internal/config"
	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	alarmrepo "github.com/oshokin/bell-scheduler/internal/repository/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/inspect"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
	"github.com/oshokin/bell-scheduler/internal/service/scheduler"
)

// schema mirrors the web application's alarms migration on SQLite.
const schema = `CREATE TABLE alarms (
	id VARCHAR(36) PRIMARY KEY,
	day VARCHAR(9) NOT NULL,
	time TIME NOT NULL,
	label VARCHAR(255) NULL,
	sound VARCHAR(255) NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 1
)`

// installation is a bell appliance laid out in a temporary directory.
type installation struct {
	dir        string
	database   string
	soundDir   string
	ledgerFile string
	configPath string
	textfile   string
}

// newInstallation seeds the database with rows and writes a configuration file.
func newInstallation(t *testing.T, rows [][]any, tune func(*config.Config)) *installation {
	t.Helper()

	dir := t.TempDir()
	inst := &installation{
		dir:        dir,
		database:   filepath.Join(dir, "database.sqlite"),
		soundDir:   filepath.Join(dir, "audio"),
		ledgerFile: filepath.Join(dir, "state", "triggered_alarms.json"),
		configPath: filepath.Join(dir, "bell-scheduler.yaml"),
		textfile:   filepath.Join(dir, "metrics", "bell.prom"),
	}

	require.NoError(t, os.MkdirAll(inst.soundDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inst.soundDir, "bell.mp3"), []byte("ID3"), 0o644))

	db, err := sql.Open("sqlite", inst.database)
	require.NoError(t, err)

	_, err = db.Exec(schema)
	require.NoError(t, err)

	for _, row := range rows {
		_, err = db.Exec(`INSERT INTO alarms (id, day, time, label, sound, enabled) VALUES (?, ?, ?, ?, ?, ?)`, row...)
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())

	cfg := &config.Config{
		Timezone:   "UTC",
		LedgerFile: inst.ledgerFile,
		SoundDir:   inst.soundDir,
		Players:    []string{"bell-player-that-does-not-exist {file}"},
		Database: config.Database{
			Driver: "sqlite",
			DSN:    inst.database,
		},
		Metrics: config.Metrics{
			Textfile: inst.textfile,
		},
	}

	if tune != nil {
		tune(cfg)
	}

	require.NoError(t, config.Save(inst.configPath, cfg))

	return inst
}

// otherDay returns a weekday that is not today in UTC.
func otherDay() string {
	return domain.WeekdayOf(time.Now().UTC().Add(48 * time.Hour).Weekday()).String()
}

// TestRunTick_WritesLedgerAndMetrics runs a cron invocation against a real database.
func TestRunTick_WritesLedgerAndMetrics(t *testing.T) {
	t.Parallel()

	inst := newInstallation(t, [][]any{
		{"A1", otherDay(), "08:00", "First bell", "bell.mp3", true},
	}, nil)

	err := scheduler.RunTick(context.Background(), &scheduler.Options{ConfigPath: inst.configPath})
	require.NoError(t, err)

	// The ledger is persisted even when nothing fired.
	contents, err := os.ReadFile(inst.ledgerFile)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"fired":[]`)

	metrics, err := os.ReadFile(inst.textfile)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `bell_scheduler_ticks_total{result="ok"} 1`)
}

// TestRunTick_BadDatabaseFails reports process-level problems.
func TestRunTick_BadDatabaseFails(t *testing.T) {
	t.Parallel()

	inst := newInstallation(t, nil, func(cfg *config.Config) {
		cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "database.sqlite")
	})

	err := scheduler.RunTick(context.Background(), &scheduler.Options{ConfigPath: inst.configPath})
	require.Error(t, err)
}

// TestScheduler_PlaysThroughRealPlayer fires a due alarm with an actual child process.
func TestScheduler_PlaysThroughRealPlayer(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("touch"); err != nil {
		t.Skip("touch is not available")
	}

	inst := newInstallation(t, [][]any{
		{"A1", "Monday", "08:00", "First bell", "bell.mp3", true},
		{"A2", "Monday", "08:00:00", "Disabled", "bell.mp3", false},
	}, nil)

	ctx := context.Background()

	source, err := alarmrepo.Open(ctx, alarmrepo.DialectSQLite, inst.database)
	require.NoError(t, err)

	defer func() {
		_ = source.Close()
	}()

	// The player leaves a marker next to the sound it was given.
	gateway, err := playback.NewGateway([]string{"touch {file}.played"})
	require.NoError(t, err)

	monday := time.Date(2026, time.October, 19, 8, 0, 12, 0, time.UTC)

	newScheduler := func() *scheduler.Scheduler {
		return scheduler.New(
			source,
			ledger.NewFileLedger(inst.ledgerFile),
			sound.NewLibrary(inst.soundDir),
			gateway,
			scheduler.WithLocation(time.UTC),
			scheduler.WithClock(func() time.Time { return monday }),
		)
	}

	report := newScheduler().Tick(ctx)
	require.Equal(t, 1, report.Fired)
	require.Zero(t, report.Failed)

	marker := filepath.Join(inst.soundDir, "bell.mp3.played")
	require.Eventually(t, func() bool {
		_, statErr := os.Stat(marker)
		return statErr == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(marker))

	// A restarted process in the same minute does not play again.
	report = newScheduler().Tick(ctx)
	require.Equal(t, 1, report.Suppressed)
	require.Zero(t, report.Fired)

	time.Sleep(200 * time.Millisecond)
	require.NoFileExists(t, marker)
}

// TestInspectCommands lists alarms and manages the ledger through configuration.
func TestInspectCommands(t *testing.T) {
	t.Parallel()

	inst := newInstallation(t, [][]any{
		{"A1", "Monday", "08:00", "First bell", "bell.mp3", false},
		{"A2", "Friday", "12:30:00", nil, "bell.mp3", false},
	}, nil)

	ctx := context.Background()
	opts := &scheduler.Options{ConfigPath: inst.configPath}

	var out bytes.Buffer
	require.NoError(t, inspect.RunAlarms(ctx, opts, "friday", &out))
	require.Contains(t, out.String(), "12:30")
	require.NotContains(t, out.String(), "First bell")

	out.Reset()
	require.NoError(t, inspect.RunSounds(ctx, opts, &out))
	require.Contains(t, out.String(), "bell.mp3")

	out.Reset()
	require.NoError(t, inspect.RunSoundTest(ctx, opts, "bell.mp3", false, &out))
	require.Contains(t, out.String(), "player: none installed")

	require.NoError(t, scheduler.RunTick(ctx, opts))

	out.Reset()
	require.NoError(t, inspect.RunLedgerShow(ctx, opts, &out))
	require.Contains(t, out.String(), "fired: 0")

	out.Reset()
	require.NoError(t, inspect.RunLedgerClear(ctx, opts, &out))
	require.Contains(t, out.String(), "cleared 0 fired occurrences")
}

// TestRun_ServesMetricsAndStops runs the built-in driver and cancels it.
func TestRun_ServesMetricsAndStops(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	inst := newInstallation(t, nil, func(cfg *config.Config) {
		cfg.Metrics.ListenAddress = addr
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- scheduler.Run(runCtx, &scheduler.Options{ConfigPath: inst.configPath})
	}()

	// Wait for the metrics endpoint to come up.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics") //nolint:noctx // Test helper.
		if err != nil {
			return false
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)

		return err == nil && resp.StatusCode == http.StatusOK && bytes.Contains(body, []byte("bell_scheduler_"))
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	require.NoError(t, <-done)
}

// reservePort returns a free local TCP address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}
