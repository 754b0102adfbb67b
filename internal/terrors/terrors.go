// Package terrors defines Trough's error taxonomy: sentinel errors each
// component wraps its failures in, so callers (and HTTP handlers) can
// tell apart "someone else already holds this" from "the coordination
// store is unreachable" without string matching.
package terrors

import "errors"

var (
	// ErrAlreadyHeld is returned when a write lock is requested for a
	// segment another host already holds.
	ErrAlreadyHeld = errors.New("trough: segment write lock already held")

	// ErrNotLeader is returned when an operation that requires holding
	// the master election is attempted by a non-leader.
	ErrNotLeader = errors.New("trough: not the elected master")

	// ErrCopyFailed is returned when copying a segment from the bulk
	// store fails partway through.
	ErrCopyFailed = errors.New("trough: segment copy from bulk store failed")

	// ErrProvisionFailed is returned when a local segment file cannot
	// be created or opened.
	ErrProvisionFailed = errors.New("trough: segment provisioning failed")

	// ErrCoordinationStore is returned when the coordination store
	// itself fails or is unreachable.
	ErrCoordinationStore = errors.New("trough: coordination store error")

	// ErrConfig is returned for invalid or missing configuration.
	ErrConfig = errors.New("trough: configuration error")
)
