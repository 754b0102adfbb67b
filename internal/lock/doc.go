// Package lock implements Trough's single-writer guarantee: at most one
// host may hold the write lock for a given segment at a time.
//
// # Design
//
// A lock's presence in the coordination store's lock table *is* the
// lock — there is no separate boolean flag to go stale relative to the
// row. Acquire is a conditional insert that always returns the row
// actually stored, eliminating the classic "insert, then re-read to see
// who won" race: the store's AcquireLock does both in one call.
//
// Release requires the caller to present the same (node, port) that
// acquired the lock, so a host that lost its lease (e.g. after a crash
// and restart with a different port) cannot release a lock it no longer
// holds out from under its new owner.
//
// # See Also
//
// internal/store: the coordination-store interface this package is
// built on. internal/segment: Segment.AcquireWriteLock delegates here.
package lock
