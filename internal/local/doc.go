// Package local implements Controller, the LocalSyncController every
// host runs regardless of whether it also holds the elected master
// role.
//
// # Overview
//
// Each tick, SyncSegments heartbeats this host's trough-nodes presence,
// diffs HostRegistry.SegmentsForHost against what already exists on
// local disk, copies anything missing from the bulk store, and
// heartbeats a second time to advertise trough-read rows for segments
// that just became available. Calling Heartbeat twice per tick — once
// before copying, once after — is required: it lets a slow copy not
// starve this host's basic liveness signal, and it means a segment only
// becomes advertised as readable once it is actually present on disk.
//
// # Write Provisioning
//
// ProvisionWritableSegment is called by the master's provisioning HTTP
// handler (or directly, in single-node setups) to materialize a fresh
// segment file here and register a trough-write row for it, ahead of a
// client writing to this host's write port.
//
// # Change Feed Acceleration
//
// ListenChangeFeed is an optional accelerant: if a caller dials the
// master's change feed and hands the Subscriber here, a newly committed
// assignment for this host triggers SyncSegments immediately instead of
// waiting out the regular poll interval. Nothing about correctness
// depends on it — Run's ticker reconciles regardless.
//
// # See Also
//
// internal/segment: the per-segment facade used for local-path and
// provisioning logic. internal/bulk: the bulk-store client
// CopySegmentFromBulkStore reads from. internal/master: the
// counterpart controller that plans what SyncSegments reconciles
// against. internal/changefeed: the push mechanism ListenChangeFeed
// consumes.
package local
