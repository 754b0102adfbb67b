// Package lock implements the segment write-lock primitive on top of the
// coordination store. See doc.go for complete package documentation.
package lock

import (
	"fmt"
	"time"

	"github.com/dreamware/trough/internal/store"
	"github.com/dreamware/trough/internal/terrors"
)

// Lock provides acquire/load/release operations for a single segment's
// write lock, backed by store.Store's conditional lock-row insert.
type Lock struct {
	st store.Store
}

// New returns a Lock backed by st.
func New(st store.Store) *Lock {
	return &Lock{st: st}
}

// Acquire attempts to take the write lock for segment on behalf of
// (node, port). It always returns the lock row now in effect — the
// caller's own, or whoever held it first — together with a bool that is
// true only when the caller's insert won the race.
func (l *Lock) Acquire(segment, node string, port int) (store.LockRecord, bool, error) {
	rec, won, err := l.st.AcquireLock(segment, node, port, time.Now())
	if err != nil {
		return store.LockRecord{}, false, fmt.Errorf("%w: acquire lock for %s: %v", terrors.ErrCoordinationStore, segment, err)
	}
	return rec, won, nil
}

// Load returns the current holder of segment's write lock, or
// store.ErrNotFound if it is unlocked.
func (l *Lock) Load(segment string) (store.LockRecord, error) {
	rec, err := l.st.LoadLock(segment)
	if err != nil {
		return store.LockRecord{}, err
	}
	return rec, nil
}

// Release drops the write lock for segment, but only if (node, port)
// matches the current holder. Releasing a lock held by someone else
// returns terrors.ErrAlreadyHeld rather than silently succeeding.
func (l *Lock) Release(segment, node string, port int) error {
	if err := l.st.ReleaseLock(segment, node, port); err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("%w: %s is held by a different host", terrors.ErrAlreadyHeld, segment)
		}
		return fmt.Errorf("%w: release lock for %s: %v", terrors.ErrCoordinationStore, segment, err)
	}
	return nil
}
