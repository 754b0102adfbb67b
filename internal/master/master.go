// Package master implements MasterSyncController, the single elected
// coordinator that enumerates the bulk store, plans segment-to-host
// assignments, and arbitrates writable-segment requests. See doc.go for
// complete package documentation.
package master

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/trough/internal/bulk"
	"github.com/dreamware/trough/internal/changefeed"
	"github.com/dreamware/trough/internal/cluster"
	"github.com/dreamware/trough/internal/lock"
	"github.com/dreamware/trough/internal/registry"
	"github.com/dreamware/trough/internal/ring"
	"github.com/dreamware/trough/internal/segment"
	"github.com/dreamware/trough/internal/store"
	"github.com/dreamware/trough/internal/terrors"
)

// leaderServiceID is the well-known services row id every candidate
// contends for; holding it is the entire election.
const leaderServiceID = "trough-sync-master"

// minLoadRatioThreshold is the floor MinAcceptableLoadRatio must clear
// for AssignSegments to consider the current placement balanced enough
// to leave alone.
const minLoadRatioThreshold = 0.2

// Controller runs the election/assignment loop and answers
// provision-writable-segment requests.
type Controller struct {
	Node       string
	WritePort  int
	LocalPort  int
	ElectionTTL time.Duration

	registry *registry.HostRegistry
	lock     *lock.Lock
	bulkStore bulk.Store
	ring     *ring.Ring
	log      zerolog.Logger

	httpClient *http.Client
	feed       *changefeed.Hub
}

// SetChangeFeed wires hub so AssignSegments publishes a Delta for every
// new assignment it commits. Optional: a Controller with no hub set
// simply doesn't push, and local controllers fall back to their poll
// interval.
func (c *Controller) SetChangeFeed(hub *changefeed.Hub) {
	c.feed = hub
}

// New returns a Controller for node, backed by reg/lk/bs, logging
// through logger.
func New(node string, writePort, localPort int, electionTTL time.Duration, reg *registry.HostRegistry, lk *lock.Lock, bs bulk.Store, logger zerolog.Logger) *Controller {
	return &Controller{
		Node:        node,
		WritePort:   writePort,
		LocalPort:   localPort,
		ElectionTTL: electionTTL,
		registry:    reg,
		lock:        lk,
		bulkStore:   bs,
		ring:        ring.New(),
		log:         logger.With().Str("component", "master").Logger(),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// HoldElection attempts to become (or remain) the unique holder of the
// trough-sync-master role. It always heartbeats with self as the node;
// the store's conditional-insert semantics mean a non-incumbent's
// heartbeat only wins when no healthy incumbent exists.
func (c *Controller) HoldElection(ctx context.Context) error {
	hosts, err := c.registry.GetHosts(roleSyncMaster)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if h.Node != c.Node {
			return fmt.Errorf("%w: %s holds %s", terrors.ErrNotLeader, h.Node, leaderServiceID)
		}
	}

	rec := store.ServiceRecord{
		ID:   leaderServiceID,
		Role: roleSyncMaster,
		Node: c.Node,
		TTL:  c.ElectionTTL,
	}
	if err := c.registry.Heartbeat(rec); err != nil {
		return err
	}
	c.log.Info().Str("node", c.Node).Msg("holding election")
	return nil
}

const roleSyncMaster = "trough-sync-master"
const roleNodes = "trough-nodes"
const roleRead = "trough-read"

// WaitToBecomeLeader blocks, polling at interval, until HoldElection
// succeeds or ctx is canceled.
func (c *Controller) WaitToBecomeLeader(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := c.HoldElection(ctx); err == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.HoldElection(ctx); err == nil {
				return nil
			}
		}
	}
}

// WaitForHosts blocks, polling at interval, until at least minHosts live
// trough-nodes hosts exist or ctx is canceled.
func (c *Controller) WaitForHosts(ctx context.Context, minHosts int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() (bool, error) {
		hosts, err := c.registry.GetHosts(roleNodes)
		if err != nil {
			return false, err
		}
		return len(hosts) >= minHosts, nil
	}

	if ok, err := check(); err != nil {
		return err
	} else if ok {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ok, err := check()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

// GetSegmentFileList lists every segment file in the bulk store.
func (c *Controller) GetSegmentFileList(ctx context.Context) ([]cluster.BulkStoreEntry, error) {
	entries, err := c.bulkStore.ListSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("master: list segment files: %w", err)
	}
	return entries, nil
}

// AssignSegments refreshes the ring from the live trough-nodes set, then
// for each bulk-store segment file ensures it holds at least
// MinimumAssignments committed copies, placing new copies on hosts drawn
// from the ring and filtered by MinAcceptableLoadRatio.
func (c *Controller) AssignSegments(ctx context.Context) error {
	hostRecs, err := c.registry.GetHosts(roleNodes)
	if err != nil {
		return err
	}
	hosts := make([]string, 0, len(hostRecs))
	for _, h := range hostRecs {
		hosts = append(hosts, h.Node)
	}
	c.ring.Update(hosts)

	entries, err := c.GetSegmentFileList(ctx)
	if err != nil {
		return err
	}

	ratio, err := c.registry.MinAcceptableLoadRatio(roleNodes)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := c.assignOne(ctx, entry, ratio); err != nil {
			c.log.Error().Err(err).Str("segment", entry.SegmentID()).Msg("assign segment failed")
		}
	}
	return nil
}

func (c *Controller) assignOne(ctx context.Context, entry cluster.BulkStoreEntry, ratio float64) error {
	seg := segment.New(entry.SegmentID(), entry.Path, c.registry, c.lock)

	want := seg.MinimumAssignments()
	current, err := seg.AllCopies(ctx)
	if err != nil {
		return err
	}
	if len(current) >= want {
		return nil
	}

	have := make(map[string]bool, len(current))
	for _, cp := range current {
		have[cp.Host] = true
	}

	candidates := c.ring.Hosts(entry.SegmentID(), want*3+len(current))
	var placed []string
	for _, host := range candidates {
		if len(placed)+len(current) >= want {
			break
		}
		if have[host] {
			continue
		}
		if ratio > 0 && ratio < minLoadRatioThreshold {
			load, err := c.registry.HostLoad(host)
			if err == nil && load > 0 {
				continue
			}
		}
		if err := c.registry.Assign(entry.SegmentID(), host, entry.Path, entry.Length, 0); err != nil {
			return err
		}
		placed = append(placed, host)
	}
	if len(placed) > 0 {
		if err := c.registry.CommitAssignments(entry.SegmentID()); err != nil {
			return err
		}
		c.log.Info().Str("segment", entry.SegmentID()).Int("new_copies", len(placed)).Msg("segment assigned")
		if c.feed != nil {
			for _, host := range placed {
				c.feed.Publish(changefeed.Delta{
					Segment:    entry.SegmentID(),
					Host:       host,
					RemotePath: entry.Path,
					Bytes:      entry.Length,
					At:         time.Now(),
				})
			}
		}
	}
	return nil
}

// ProvisionWritableSegment returns the URL a client should write to for
// segmentID, reusing a live write lock if one exists or electing a host
// and triggering local provisioning otherwise.
func (c *Controller) ProvisionWritableSegment(ctx context.Context, segmentID string) (string, error) {
	seg := segment.New(segmentID, "", c.registry, c.lock)

	existing, err := seg.RetrieveWriteLock(ctx)
	if err == nil && existing != nil {
		return c.writerURL(existing.Node, segmentID), nil
	}

	host, err := c.pickWriteHost(ctx, seg)
	if err != nil {
		return "", err
	}

	if _, _, err := seg.AcquireWriteLock(ctx, host, c.WritePort); err != nil {
		return "", err
	}

	if err := c.requestProvision(ctx, host, segmentID); err != nil {
		return "", err
	}

	return c.writerURL(host, segmentID), nil
}

func (c *Controller) writerURL(host, segmentID string) string {
	return fmt.Sprintf("http://%s:%d/?segment=%s", host, c.WritePort, segmentID)
}

// pickWriteHost prefers an existing healthy trough-read replica of the
// segment; falls back to any healthy trough-nodes member. Ties break on
// oldest LastHeartbeat.
func (c *Controller) pickWriteHost(ctx context.Context, seg *segment.Segment) (string, error) {
	readers, err := c.registry.GetHosts(roleRead)
	if err != nil {
		return "", err
	}
	if host := oldestCandidateFor(readers, seg.ID()); host != "" {
		return host, nil
	}

	nodes, err := c.registry.GetHosts(roleNodes)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("master: no live hosts to provision %s", seg.ID())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].LastHeartbeat.Before(nodes[j].LastHeartbeat) })
	return nodes[0].Node, nil
}

func oldestCandidateFor(readers []store.ServiceRecord, segmentID string) string {
	var candidates []store.ServiceRecord
	for _, r := range readers {
		if r.Segment == segmentID {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastHeartbeat.Before(candidates[j].LastHeartbeat)
	})
	return candidates[0].Node
}

func (c *Controller) requestProvision(ctx context.Context, host, segmentID string) error {
	url := fmt.Sprintf("http://%s:%d/", host, c.LocalPort)
	req := cluster.ProvisionRequest{Segment: segmentID}
	var resp cluster.ProvisionResponse
	if err := cluster.PostJSON(ctx, url, req, &resp); err != nil {
		return fmt.Errorf("%w: provision %s on %s: %v", terrors.ErrProvisionFailed, segmentID, host, err)
	}
	return nil
}

// Run executes one election->wait-for-hosts->assign cycle on interval
// until ctx is canceled.
func (c *Controller) Run(ctx context.Context, interval time.Duration, minHosts int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		if err := c.WaitToBecomeLeader(ctx, interval); err != nil {
			c.log.Debug().Err(err).Msg("not leader")
			return
		}
		if err := c.WaitForHosts(ctx, minHosts, interval); err != nil {
			c.log.Debug().Err(err).Msg("waiting for hosts")
			return
		}
		if err := c.AssignSegments(ctx); err != nil {
			c.log.Error().Err(err).Msg("assign segments")
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
