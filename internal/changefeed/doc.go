// Package changefeed provides the websocket push path that lets a
// trough-sync-local controller learn about a new assignment the moment
// trough-sync-master commits it, instead of waiting for its next poll
// tick.
//
// # Overview
//
// Hub lives on trough-sync-master, one per process, fed by Hub.Publish
// calls that internal/master.Controller (wired with SetChangeFeed) makes
// as AssignSegments commits new placements. Each trough-sync-local process holds a Subscriber
// dialed against the master's /changefeed endpoint; internal/local.
// Controller.ListenChangeFeed reads Deltas off it and triggers an
// immediate SyncSegments tick rather than waiting out the sync
// interval.
//
// This is an acceleration path, not a correctness dependency: a
// dropped or never-established connection just means the host falls
// back to discovering the assignment on its next regular poll. Nothing
// in the assignment protocol requires a subscriber to be connected.
//
// # See Also
//
// internal/master: publishes Deltas as AssignSegments commits them.
// internal/local: consumes Deltas to shortcut its poll interval.
package changefeed
