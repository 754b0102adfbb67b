// Package registry implements HostRegistry, Trough's view of which hosts
// are alive and which segments are assigned where. See doc.go for
// complete package documentation.
package registry

import (
	"fmt"
	"time"

	"github.com/dreamware/trough/internal/store"
	"github.com/dreamware/trough/internal/terrors"
)

// HostRegistry is the authoritative source for host liveness and segment
// placement, built directly on top of the coordination store. It adds no
// state of its own beyond the store it wraps; every method either reads
// through to the store or translates one of its typed rows into a
// terrors-wrapped error.
type HostRegistry struct {
	st store.Store
}

// New returns a HostRegistry backed by st.
func New(st store.Store) *HostRegistry {
	return &HostRegistry{st: st}
}

// Heartbeat upserts a single services row for rec, stamping the server
// timestamp inside the store rather than trusting rec's own.
func (r *HostRegistry) Heartbeat(rec store.ServiceRecord) error {
	if err := r.st.Heartbeat(rec); err != nil {
		return fmt.Errorf("%w: heartbeat %s: %v", terrors.ErrCoordinationStore, rec.ID, err)
	}
	return nil
}

// BulkHeartbeat upserts many services rows in one round trip. The first
// error encountered aborts the remaining writes (first-error-fatal).
func (r *HostRegistry) BulkHeartbeat(recs []store.ServiceRecord) error {
	if err := r.st.BulkHeartbeat(recs); err != nil {
		return fmt.Errorf("%w: bulk heartbeat (%d records): %v", terrors.ErrCoordinationStore, len(recs), err)
	}
	return nil
}

// GetHosts returns services rows for role whose heartbeat has not
// expired.
func (r *HostRegistry) GetHosts(role string) ([]store.ServiceRecord, error) {
	hosts, err := r.st.GetHosts(role, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: get hosts for role %s: %v", terrors.ErrCoordinationStore, role, err)
	}
	return hosts, nil
}

// HostsExist reports whether at least one live host exists for role.
func (r *HostRegistry) HostsExist(role string) (bool, error) {
	hosts, err := r.GetHosts(role)
	if err != nil {
		return false, err
	}
	return len(hosts) > 0, nil
}

// Assign queues an assignment row for (segment, host); it is not visible
// to AllCopies/SegmentsForHost until CommitAssignments is called.
func (r *HostRegistry) Assign(segment, host, remotePath string, bytes int64, hashRing int) error {
	rec := store.AssignmentRecord{
		ID:         host + ":" + segment,
		Segment:    segment,
		Host:       host,
		RemotePath: remotePath,
		Bytes:      bytes,
		HashRing:   hashRing,
	}
	if err := r.st.QueueAssignment(rec); err != nil {
		return fmt.Errorf("%w: queue assignment %s: %v", terrors.ErrCoordinationStore, rec.ID, err)
	}
	return nil
}

// CommitAssignments stamps AssignedOn on every queued assignment row for
// segment in one batch.
func (r *HostRegistry) CommitAssignments(segment string) error {
	if err := r.st.CommitAssignments(segment, time.Now()); err != nil {
		return fmt.Errorf("%w: commit assignments for %s: %v", terrors.ErrCoordinationStore, segment, err)
	}
	return nil
}

// Unassign removes the assignment row for (segment, host).
func (r *HostRegistry) Unassign(segment, host string) error {
	if err := r.st.Unassign(segment, host); err != nil {
		return fmt.Errorf("%w: unassign %s from %s: %v", terrors.ErrCoordinationStore, segment, host, err)
	}
	return nil
}

// SegmentsForHost returns committed assignment rows for host.
func (r *HostRegistry) SegmentsForHost(host string) ([]store.AssignmentRecord, error) {
	recs, err := r.st.SegmentsForHost(host)
	if err != nil {
		return nil, fmt.Errorf("%w: segments for host %s: %v", terrors.ErrCoordinationStore, host, err)
	}
	return recs, nil
}

// HostLoad sums the bytes of host's committed assignments.
func (r *HostRegistry) HostLoad(host string) (int64, error) {
	recs, err := r.SegmentsForHost(host)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rec := range recs {
		total += rec.Bytes
	}
	return total, nil
}

// MinAcceptableLoadRatio returns the least-loaded live host's share of
// all committed bytes for role: min(host_bytes) / total_bytes. It is 0
// when no live host for role holds any committed assignment.
func (r *HostRegistry) MinAcceptableLoadRatio(role string) (float64, error) {
	hosts, err := r.GetHosts(role)
	if err != nil {
		return 0, err
	}

	var total int64
	min := int64(-1)
	for _, h := range hosts {
		load, err := r.HostLoad(h.Node)
		if err != nil {
			return 0, err
		}
		if load == 0 {
			continue
		}
		total += load
		if min < 0 || load < min {
			min = load
		}
	}
	if total == 0 || min < 0 {
		return 0, nil
	}
	return float64(min) / float64(total), nil
}
