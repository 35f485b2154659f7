package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	domain "github.com/oshokin/bell-scheduler/internal/domain/alarm"
	"github.com/oshokin/bell-scheduler/internal/logger"
)

// Ledger defines the operations the scheduler performs on the fired set.
type Ledger interface {
	Lock(ctx context.Context) (unlock func(), err error)
	Load(ctx context.Context, date string)
	Has(key domain.Key) bool
	MarkFired(key domain.Key)
	Persist(ctx context.Context) error
	Prune(keep func(domain.Key) bool) int
	Len() int
}

const (
	// defaultLockTimeout bounds Lock when no timeout is configured.
	defaultLockTimeout = 45 * time.Second
	// lockPollInterval is the delay between two lock attempts.
	lockPollInterval = 100 * time.Millisecond
	// filePermissions restricts the ledger to the scheduler's user.
	filePermissions = 0o600
	// dirPermissions is used when the ledger directory does not exist yet.
	dirPermissions = 0o755
)

// ErrLockTimeout is returned when another tick holds the ledger for too long.
var ErrLockTimeout = errors.New("ledger lock timeout")

// document is the on-disk representation of the ledger.
type document struct {
	// Date is the calendar day the fired keys belong to.
	Date string `json:"date"`
	// Fired holds the ledger keys in sorted order.
	Fired []string `json:"fired"`
}

// FileLedger persists the fired set to a JSON file.
type FileLedger struct {
	// fs is the filesystem holding the ledger file.
	fs afero.Fs
	// path is the location of the ledger file.
	path string
	// locker serialises ticks across processes.
	locker Locker
	// lockTimeout bounds how long Lock waits.
	lockTimeout time.Duration
	// date is the calendar day of the in-memory fired set.
	date string
	// fired is the in-memory set of ledger keys.
	fired map[string]struct{}
	// mu protects date and fired.
	mu sync.Mutex
}

// Option configures a FileLedger.
type Option func(*FileLedger)

// WithFs replaces the filesystem used for the ledger file.
func WithFs(fs afero.Fs) Option {
	return func(l *FileLedger) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithLocker replaces the inter-process lock.
func WithLocker(locker Locker) Option {
	return func(l *FileLedger) {
		if locker != nil {
			l.locker = locker
		}
	}
}

// WithLockTimeout sets how long Lock waits for a busy ledger.
func WithLockTimeout(timeout time.Duration) Option {
	return func(l *FileLedger) {
		if timeout > 0 {
			l.lockTimeout = timeout
		}
	}
}

// NewFileLedger creates a ledger stored at path and locked through path + ".lock".
func NewFileLedger(path string, opts ...Option) *FileLedger {
	path = filepath.Clean(path)

	l := &FileLedger{
		fs:          afero.NewOsFs(),
		path:        path,
		locker:      NewFileLocker(path + ".lock"),
		lockTimeout: defaultLockTimeout,
		fired:       make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string {
	return l.path
}

// Lock takes the inter-process lock, polling until the lock timeout or ctx expires.
// The returned function releases it.
func (l *FileLedger) Lock(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.locker.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}

		if acquired {
			return func() {
				if err := l.locker.Unlock(); err != nil {
					logger.WarnKV(ctx, "Failed to release ledger lock", "error", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w after %s: %w", ErrLockTimeout, l.lockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Load replaces the in-memory set with the persisted one for date.
// It never fails: a missing, unreadable or corrupt file, or a file written on
// another day, all yield an empty set.
func (l *FileLedger) Load(ctx context.Context, date string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.date = date
	l.fired = make(map[string]struct{})

	contents, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.DebugKV(ctx, "Ledger file not found, starting empty", "path", l.path)
			return
		}

		logger.WarnKV(ctx, "Ledger file unreadable, starting empty", "path", l.path, "error", err)

		return
	}

	doc, err := decode(contents)
	if err != nil {
		logger.WarnKV(ctx, "Ledger file corrupt, starting empty", "path", l.path, "error", err)
		return
	}

	if doc.Date != "" && doc.Date != date {
		logger.InfoKV(ctx, "Ledger belongs to another day, starting empty",
			"ledger_date", doc.Date, "date", date, "discarded", len(doc.Fired))

		return
	}

	for _, key := range doc.Fired {
		if key != "" {
			l.fired[key] = struct{}{}
		}
	}
}

// Has reports whether the occurrence has already fired.
func (l *FileLedger) Has(key domain.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.fired[key.String()]

	return ok
}

// MarkFired records the occurrence in memory. Persist writes it.
func (l *FileLedger) MarkFired(key domain.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fired[key.String()] = struct{}{}
}

// Clear forgets every fired occurrence.
func (l *FileLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fired = make(map[string]struct{})
}

// Prune drops every key for which keep returns false and returns how many were dropped.
// Keys that cannot be parsed are always dropped.
func (l *FileLedger) Prune(keep func(domain.Key) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0

	for raw := range l.fired {
		key, err := domain.ParseKey(raw)
		if err == nil && keep != nil && keep(key) {
			continue
		}

		delete(l.fired, raw)

		removed++
	}

	return removed
}

// Len returns the number of fired occurrences.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.fired)
}

// Keys returns the fired keys in sorted order.
func (l *FileLedger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sortedKeys()
}

// Date returns the calendar day of the in-memory set.
func (l *FileLedger) Date() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.date
}

// Persist overwrites the ledger file with the in-memory set.
// The write goes to a temporary file renamed over the target, so readers see
// either the previous or the new content.
func (l *FileLedger) Persist(ctx context.Context) error {
	l.mu.Lock()
	doc := document{
		Date:  l.date,
		Fired: l.sortedKeys(),
	}
	l.mu.Unlock()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err = l.writeAtomic(data); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Ledger persisted", "path", l.path, "fired", len(doc.Fired))

	return nil
}

// writeAtomic writes data next to the ledger and renames it into place.
func (l *FileLedger) writeAtomic(data []byte) error {
	dir := filepath.Dir(l.path)
	if err := l.fs.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := afero.TempFile(l.fs, dir, filepath.Base(l.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temporary ledger: %w", err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		_ = tmp.Close()

		if !committed {
			_ = l.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temporary ledger: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temporary ledger: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temporary ledger: %w", err)
	}

	if err = l.fs.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("chmod temporary ledger: %w", err)
	}

	if err = l.fs.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}

	committed = true

	return nil
}

// sortedKeys must be called with mu held.
func (l *FileLedger) sortedKeys() []string {
	keys := make([]string, 0, len(l.fired))
	for key := range l.fired {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// decode accepts the current document format and the bare JSON array written
// by older checkers.
func decode(contents []byte) (*document, error) {
	contents = bytes.TrimSpace(contents)
	if len(contents) == 0 {
		return new(document), nil
	}

	if contents[0] == '[' {
		var legacy []string
		if err := json.Unmarshal(contents, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy ledger: %w", err)
		}

		return &document{Fired: legacy}, nil
	}

	var doc document
	if err := json.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	return &doc, nil
}
