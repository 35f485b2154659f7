package ledger

// Locker is an advisory inter-process lock.
type Locker interface {
	// TryLock attempts to take the lock without blocking.
	TryLock() (bool, error)
	// Unlock releases a lock taken by TryLock.
	Unlock() error
}
