// Package registry implements HostRegistry, the read/write surface both
// sync controllers use to learn who else is alive and where segments are
// assigned, and RingWatcher, which keeps a consistent-hash ring in sync
// with the live host set.
//
// # Overview
//
// HostRegistry adds no durable state of its own: every call reads or
// writes through to a store.Store. This keeps the placement and
// liveness logic (HostLoad, MinAcceptableLoadRatio) independent of
// whether the coordination store behind it is MemStore or BoltStore.
//
// # Architecture
//
//	┌──────────────────────────────┐
//	│   MasterSyncController /     │
//	│   LocalSyncController        │
//	└──────────────────────────────┘
//	           │
//	           ▼
//	┌──────────────────────────────┐
//	│        HostRegistry          │
//	│  heartbeat / assign / load   │
//	└──────────────────────────────┘
//	           │
//	           ▼
//	┌──────────────────────────────┐
//	│        store.Store           │
//	└──────────────────────────────┘
//
// RingWatcher sits beside HostRegistry rather than inside it: it polls
// GetHosts on an interval and republishes the result into a ring.Ring.
// MasterSyncController does not use it: AssignSegments keeps its own
// ring.Ring and refreshes it from GetHosts once per tick.
//
// # See Also
//
// internal/store: the coordination-store interface this package is
// built on. internal/ring: the consistent-hash ring RingWatcher drives.
// internal/master, internal/local: the two controllers built on top of
// HostRegistry.
package registry
