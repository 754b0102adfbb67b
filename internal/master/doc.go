// Package master implements Controller, the MasterSyncController: the
// single elected coordinator that plans segment-to-host assignment and
// arbitrates writable-segment requests.
//
// # Overview
//
// Exactly one host's Controller holds the "trough-sync-master" role at
// a time; HoldElection is a conditional heartbeat that only succeeds
// when no other healthy holder exists, so normal operation has every
// candidate's Run loop calling HoldElection on every tick and only the
// incumbent's calls actually doing anything. The winner enumerates the
// bulk store, consistent-hashes each segment to its candidate hosts via
// internal/ring, and queues+commits assignments for anything
// under-replicated.
//
// # Writable Segment Protocol
//
// ProvisionWritableSegment is the read path for write access: if a
// segment already has a live write lock, its holder's URL is returned
// unchanged; otherwise a host is chosen (preferring an existing reader,
// oldest heartbeat first), the write lock is acquired there, and that
// host is asked over HTTP to materialize the segment before its URL is
// returned.
//
// # See Also
//
// internal/registry: host liveness and assignment storage.
// internal/ring: consistent-hash placement. internal/segment: the
// per-segment facade this package drives. internal/bulk: the bulk-store
// client AssignSegments enumerates. internal/local: the counterpart
// controller running on every host, including the elected one.
package master
