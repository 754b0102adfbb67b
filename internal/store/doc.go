// Package store defines the coordination-store abstraction and provides
// concrete implementations for Trough's control-plane state: which hosts
// are alive, which segments are assigned where, and who holds the write
// lock for a segment.
//
// # Overview
//
// Every fact both sync controllers agree on lives in one of four logical
// tables, reached through the Store interface rather than ad hoc maps:
//
//	services    - heartbeats from masters and local sync controllers
//	assignment  - segment-to-host placement, queued then committed
//	lock        - at most one row per segment; presence is the lock
//	schema      - DDL keyed by a hash, applied once per new segment file
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│   MasterSyncController /            │
//	│   LocalSyncController               │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│         Store interface             │
//	└─────────────────────────────────────┘
//	                 │
//	    ┌────────────┴────────────┐
//	    ▼                         ▼
//	┌──────────┐            ┌──────────┐
//	│ MemStore │            │BoltStore │
//	└──────────┘            └──────────┘
//
// # Implementations
//
// MemStore: in-memory, used by tests and local development. No
// persistence; safe for concurrent use via a single sync.RWMutex.
//
// BoltStore: backed by go.etcd.io/bbolt, one bucket per table, rows
// JSON-encoded. Used by both sync controller binaries in production.
//
// # Conditional writes
//
// AcquireLock is the one operation that must be atomic from the caller's
// point of view: it either inserts the caller's row or hands back
// whoever already holds the lock, in the same call. This avoids the
// read-after-conditional-write race a naive "insert, then re-read on
// conflict" sequence would have under concurrent acquirers.
//
// # Server timestamps
//
// FirstHeartbeat and LastHeartbeat are set by the Store implementation
// itself from its own clock. AssignedOn and Acquired are not: they take
// the now argument passed to CommitAssignments and AcquireLock, which
// HostRegistry and Lock fill with their own host's time.Now().
//
// # See Also
//
// internal/registry: HostRegistry built on top of Store.
// internal/lock: Lock built on top of Store.
// internal/segment: Segment, which reads assignment/lock rows for one id.
package store
