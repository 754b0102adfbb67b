// Package cluster provides the types and HTTP transport helpers shared
// between Trough's master and local sync controllers: how a segment
// file is described once listed from the bulk store, the request/response
// shapes used when one controller asks another to provision a segment,
// and the JSON-over-HTTP helpers (PostJSON/GetJSON) both controllers use
// to talk to each other.
//
// # Overview
//
// Trough has no single "cluster membership" protocol of its own — that
// role is filled by the coordination store's services table (see
// internal/store and internal/registry). This package instead holds the
// wire-level vocabulary: what a bulk-store listing looks like, what a
// provisioning request/response carries, and an AssignmentUpdate record
// type (the change-feed itself carries internal/changefeed.Delta).
//
// # See Also
//
// internal/master: sends ProvisionRequest and decodes ProvisionResponse
// when asking a host to provision a segment; cmd/trough-sync-local
// serves that request.
package cluster
