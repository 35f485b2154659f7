package ledger

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
)

const (
	testPath  = "/var/lib/bell/ledger.json"
	testToday = "2026-10-19"
)

// monday8 is the ledger key of alarm A1 at Monday 08:00.
//
//nolint:gochecknoglobals // Shared fixture.
var monday8 = domain.Key{AlarmID: "A1", Time: domain.ClockTime{Hour: 8}, Day: domain.Monday}

// newMemLedger builds a ledger on an in-memory filesystem with a real lock file.
func newMemLedger(t *testing.T, fs afero.Fs) *FileLedger {
	t.Helper()

	return NewFileLedger(
		testPath,
		WithFs(fs),
		WithLocker(NewFileLocker(filepath.Join(t.TempDir(), "ledger.lock"))),
	)
}

// TestFileLedger_MissingFile starts empty.
func TestFileLedger_MissingFile(t *testing.T) {
	t.Parallel()

	l := newMemLedger(t, afero.NewMemMapFs())
	l.Load(context.Background(), testToday)

	require.Zero(t, l.Len())
	require.Equal(t, testToday, l.Date())
}

// TestFileLedger_PersistLoad_Roundtrip ensures a restart sees the persisted keys.
func TestFileLedger_PersistLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ctx := context.Background()

	first := newMemLedger(t, fs)
	first.Load(ctx, testToday)
	first.MarkFired(monday8)
	require.NoError(t, first.Persist(ctx))

	contents, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(contents, &doc))
	require.Equal(t, testToday, doc.Date)
	require.Equal(t, []string{"A1|08:00|Monday"}, doc.Fired)

	second := newMemLedger(t, fs)
	second.Load(ctx, testToday)
	require.True(t, second.Has(monday8))
	require.Equal(t, []string{"A1|08:00|Monday"}, second.Keys())

	// No temporary files are left behind.
	entries, err := afero.ReadDir(fs, filepath.Dir(testPath))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFileLedger_MarkFiredDoesNotPersist keeps persistence an explicit step.
func TestFileLedger_MarkFiredDoesNotPersist(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	l := newMemLedger(t, fs)
	l.Load(context.Background(), testToday)
	l.MarkFired(monday8)

	exists, err := afero.Exists(fs, testPath)
	require.NoError(t, err)
	require.False(t, exists)
}

// TestFileLedger_CorruptFile self-heals to an empty set.
func TestFileLedger_CorruptFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("{not json"), 0o600))

	l := newMemLedger(t, fs)
	l.Load(context.Background(), testToday)
	require.Zero(t, l.Len())

	l.MarkFired(monday8)
	require.NoError(t, l.Persist(context.Background()))

	healed := newMemLedger(t, fs)
	healed.Load(context.Background(), testToday)
	require.True(t, healed.Has(monday8))
}

// TestFileLedger_OtherDay discards a ledger written on a previous date.
func TestFileLedger_OtherDay(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	stale := `{"date":"2026-10-12","fired":["A1|08:00|Monday"]}`
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(stale), 0o600))

	l := newMemLedger(t, fs)
	l.Load(context.Background(), testToday)
	require.False(t, l.Has(monday8))
}

// TestFileLedger_LegacyArray accepts the bare JSON array format.
func TestFileLedger_LegacyArray(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(`["A1|08:00|Monday",""]`), 0o600))

	l := newMemLedger(t, fs)
	l.Load(context.Background(), testToday)
	require.True(t, l.Has(monday8))
	require.Equal(t, 1, l.Len())
}

// TestFileLedger_PruneAndClear covers the day-boundary reset helpers.
func TestFileLedger_PruneAndClear(t *testing.T) {
	t.Parallel()

	l := newMemLedger(t, afero.NewMemMapFs())
	l.Load(context.Background(), testToday)

	midnight := domain.Key{AlarmID: "A2", Time: domain.Midnight, Day: domain.Monday}

	l.MarkFired(monday8)
	l.MarkFired(midnight)

	removed := l.Prune(func(k domain.Key) bool { return k.Time.IsMidnight() })
	require.Equal(t, 1, removed)
	require.False(t, l.Has(monday8))
	require.True(t, l.Has(midnight))

	l.Clear()
	require.Zero(t, l.Len())
}

// TestFileLedger_LockExcludesOtherTicks verifies a second holder waits and times out.
func TestFileLedger_LockExcludesOtherTicks(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "ledger.lock")
	fs := afero.NewMemMapFs()

	first := NewFileLedger(testPath, WithFs(fs), WithLocker(NewFileLocker(lockPath)))
	second := NewFileLedger(
		testPath,
		WithFs(fs),
		WithLocker(NewFileLocker(lockPath)),
		WithLockTimeout(250*time.Millisecond),
	)

	unlock, err := first.Lock(context.Background())
	require.NoError(t, err)

	_, err = second.Lock(context.Background())
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()

	unlockSecond, err := second.Lock(context.Background())
	require.NoError(t, err)
	unlockSecond()
}

// TestFileLocker_UnlockWithoutLock reports misuse.
func TestFileLocker_UnlockWithoutLock(t *testing.T) {
	t.Parallel()

	locker := NewFileLocker(filepath.Join(t.TempDir(), "ledger.lock"))
	require.Error(t, locker.Unlock())

	ok, err := locker.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, locker.Unlock())
}
