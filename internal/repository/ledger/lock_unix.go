//go:build unix

package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// FileLocker holds an flock(2) exclusive lock on a lock file.
// The kernel drops the lock when the process dies, so a crashed tick never
// leaves the ledger locked.
type FileLocker struct {
	// path is the lock file location.
	path string
	// file is the open lock file while the lock is held.
	file *os.File
	// mu protects file.
	mu sync.Mutex
}

// errNotLocked is returned when Unlock is called without a held lock.
var errNotLocked = errors.New("lock is not held")

// NewFileLocker creates a locker for the given lock file path.
func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: filepath.Clean(path)}
}

// TryLock attempts a non-blocking exclusive flock.
func (l *FileLocker) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), dirPermissions); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, filePermissions)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return false, nil
		}

		return false, fmt.Errorf("flock %s: %w", l.path, err)
	}

	l.file = file

	return true, nil
}

// Unlock releases the flock and closes the lock file.
func (l *FileLocker) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errNotLocked
	}

	defer func() {
		_ = l.file.Close()
		l.file = nil
	}()

	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}

	return nil
}
