package inspect

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	"github.com/oshokin/bell-scheduler/internal/repository/ledger"
	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
)

const soundDir = "/srv/bell/public/audio"

var errMissing = errors.New("missing")

// staticSource lists a fixed set of alarms.
type staticSource []domain.Alarm

func (s staticSource) FindDue(context.Context, domain.Weekday, domain.ClockTime) ([]domain.Alarm, error) {
	return nil, nil
}

func (s staticSource) List(context.Context) ([]domain.Alarm, error) {
	return s, nil
}

// TestListAlarms filters by weekday.
func TestListAlarms(t *testing.T) {
	t.Parallel()

	source := staticSource{
		{ID: "A1", Day: domain.Monday, Time: domain.ClockTime{Hour: 8}, Sound: "bell.mp3", Enabled: true},
		{ID: "A2", Day: domain.Tuesday, Time: domain.ClockTime{Hour: 9, Minute: 30}, Label: "Recess", Sound: "recess.wav"},
	}

	all, err := ListAlarms(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	tuesday, err := ListAlarms(context.Background(), source, "tuesday")
	require.NoError(t, err)
	require.Len(t, tuesday, 1)
	require.Equal(t, "A2", tuesday[0].ID)

	_, err = ListAlarms(context.Background(), source, "Funday")
	require.ErrorIs(t, err, domain.ErrInvalidWeekday)

	var out bytes.Buffer
	require.NoError(t, WriteAlarms(&out, all))
	require.Contains(t, out.String(), "A1  Monday   08:00  Alarm")
	require.Contains(t, out.String(), "Recess")
}

// TestCheckSound validates, reports the player and plays on request.
func TestCheckSound(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, soundDir+"/bell.mp3", []byte("ID3 tag"), 0o644))
	require.NoError(t, afero.WriteFile(fs, soundDir+"/notes.txt", []byte("hi"), 0o644))

	var started [][]string

	gateway, err := playback.NewGateway([]string{"aplay {file}"},
		playback.WithFs(fs),
		playback.WithLookPath(func(program string) (string, error) { return "/usr/bin/" + program, nil }),
		playback.WithStart(func(argv []string) (int, error) {
			started = append(started, argv)
			return 7, nil
		}),
	)
	require.NoError(t, err)

	library := sound.NewLibraryFs(fs, soundDir)

	check, err := CheckSound(context.Background(), library, gateway, "bell.mp3", false)
	require.NoError(t, err)
	require.Equal(t, "aplay", check.Player)
	require.False(t, check.Played)
	require.Empty(t, started)

	check, err = CheckSound(context.Background(), library, gateway, "bell.mp3", true)
	require.NoError(t, err)
	require.True(t, check.Played)
	require.Equal(t, [][]string{{"/usr/bin/aplay", soundDir + "/bell.mp3"}}, started)

	var out bytes.Buffer
	require.NoError(t, WriteSoundCheck(&out, check))
	require.Contains(t, out.String(), "player: aplay")

	_, err = CheckSound(context.Background(), library, gateway, "notes.txt", false)
	require.ErrorIs(t, err, sound.ErrUnsupportedFormat)

	_, err = CheckSound(context.Background(), library, gateway, "gone.mp3", false)
	require.ErrorIs(t, err, sound.ErrNotFound)
}

// TestCheckSound_NoPlayer reports the absence instead of failing.
func TestCheckSound_NoPlayer(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, soundDir+"/bell.mp3", []byte("ID3"), 0o644))

	gateway, err := playback.NewGateway([]string{"aplay {file}"},
		playback.WithFs(fs),
		playback.WithLookPath(func(string) (string, error) { return "", errMissing }),
	)
	require.NoError(t, err)

	library := sound.NewLibraryFs(fs, soundDir)

	check, err := CheckSound(context.Background(), library, gateway, "bell.mp3", false)
	require.NoError(t, err)
	require.Empty(t, check.Player)

	_, err = CheckSound(context.Background(), library, gateway, "bell.mp3", true)
	require.ErrorIs(t, err, playback.ErrNoPlayer)
}

// TestShowAndClearLedger works on today's keys under the lock.
func TestShowAndClearLedger(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := "/var/lib/bell/ledger.json"
	lockPath := filepath.Join(t.TempDir(), "ledger.lock")
	contents := `{"date":"2026-10-19","fired":["A1|08:00|Monday","A2|09:30|Monday"]}`
	require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0o600))

	newLedger := func() *ledger.FileLedger {
		return ledger.NewFileLedger(path, ledger.WithFs(fs), ledger.WithLocker(ledger.NewFileLocker(lockPath)))
	}

	snapshot, err := ShowLedger(context.Background(), newLedger(), "2026-10-19")
	require.NoError(t, err)
	require.Equal(t, []string{"A1|08:00|Monday", "A2|09:30|Monday"}, snapshot.Keys)

	var out bytes.Buffer
	require.NoError(t, WriteLedger(&out, snapshot))
	require.Contains(t, out.String(), "fired: 2\n  A1|08:00|Monday\n")

	removed, err := ClearLedger(context.Background(), newLedger(), "2026-10-19")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	snapshot, err = ShowLedger(context.Background(), newLedger(), "2026-10-19")
	require.NoError(t, err)
	require.Empty(t, snapshot.Keys)
}

// TestWriteSounds prints a table row per file.
func TestWriteSounds(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, soundDir+"/bell.mp3", make([]byte, 2048), 0o644))

	files, err := sound.NewLibraryFs(fs, soundDir).List()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteSounds(&out, files))
	require.Contains(t, out.String(), "bell.mp3")
	require.Contains(t, out.String(), "2.0 kB")
}
