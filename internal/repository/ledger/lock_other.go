//go:build !unix

package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// markerLifetime is the age after which a marker left by a crashed tick is ignored.
const markerLifetime = 2 * time.Minute

// FileLocker emulates an exclusive lock with a marker file created with O_EXCL.
type FileLocker struct {
	// path is the marker file location.
	path string
	// held reports whether this locker created the marker.
	held bool
	// mu protects held.
	mu sync.Mutex
}

// errNotLocked is returned when Unlock is called without a held lock.
var errNotLocked = errors.New("lock is not held")

// NewFileLocker creates a locker for the given marker path.
func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: filepath.Clean(path)}
}

// TryLock creates the marker, removing it first when it looks stale.
func (l *FileLocker) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return true, nil
	}

	if info, err := os.Stat(l.path); err == nil && time.Since(info.ModTime()) > markerLifetime {
		_ = os.Remove(l.path)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf("create lock marker: %w", err)
	}

	if err = file.Close(); err != nil {
		return false, fmt.Errorf("close lock marker: %w", err)
	}

	l.held = true

	return true, nil
}

// Unlock removes the marker.
func (l *FileLocker) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return errNotLocked
	}

	l.held = false

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock marker: %w", err)
	}

	return nil
}
