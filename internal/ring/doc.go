// Package ring implements consistent hashing with virtual nodes, the
// placement strategy MasterSyncController uses to pick candidate hosts
// for a segment.
//
// # Strategy
//
//	Hash Ring (32-bit space):
//	0                                    2^32
//	|──────────────────────────────────────|
//	 ↑     ↑      ↑       ↑       ↑      ↑
//	 H0    H3     H1      H4      H2     H5
//
//	segment "228188" → hash → lands between H1 and H4 → candidates [H4, H2, ...]
//
// Each host is hashed to virtualNodesPerHost positions so that adding or
// removing a host only reshuffles roughly 1/n of segment placements
// instead of the whole table. MasterSyncController.AssignSegments asks
// Hosts for three times the missing copy count plus the current copy
// count, skips hosts that already hold the segment, and skips loaded
// hosts while MinAcceptableLoadRatio is below its threshold, before
// committing assignments.
//
// # See Also
//
// internal/master: calls Ring.Update and Ring.Hosts when planning
// assignments. internal/registry: RingWatcher keeps a Ring updated from
// the live host set.
package ring
