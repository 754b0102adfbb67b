// Package bulk implements Store, the client interface both sync
// controllers use to discover and fetch segments from the durable bulk
// store.
//
// # Overview
//
// The bulk store is the system of record for segment contents: every
// segment originates there, and MasterSyncController.GetSegmentFileList
// walks it to decide what needs assignment. Two implementations are
// provided. WebHDFSStore speaks WebHDFS's REST operations (LISTSTATUS,
// OPEN) against a real HDFS-compatible gateway. LocalStore serves the
// same interface from a plain directory tree, standing in for WebHDFS in
// tests and in single-node deployments that don't warrant a full HDFS
// cluster.
//
// # See Also
//
// internal/cluster: BulkStoreEntry, the shared vocabulary type both
// implementations return. internal/master, internal/local: the
// controllers that consume a Store.
package bulk
