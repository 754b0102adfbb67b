// Package local implements LocalSyncController, the per-host
// reconciliation loop that materializes a host's assigned segments from
// the bulk store and advertises them via heartbeat. See doc.go for
// complete package documentation.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/trough/internal/bulk"
	"github.com/dreamware/trough/internal/changefeed"
	"github.com/dreamware/trough/internal/cluster"
	"github.com/dreamware/trough/internal/lock"
	"github.com/dreamware/trough/internal/registry"
	"github.com/dreamware/trough/internal/segment"
	"github.com/dreamware/trough/internal/store"
	"github.com/dreamware/trough/internal/terrors"
)

const (
	roleNodes = "trough-nodes"
	roleRead  = "trough-read"
)

// Controller runs one host's sync loop: heartbeat, diff assigned
// segments against local disk, copy what's missing, heartbeat again.
type Controller struct {
	Node    string
	Port    int
	BaseDir string
	TTL     time.Duration
	Schema  string

	registry *registry.HostRegistry
	lock     *lock.Lock
	bulkStore bulk.Store
	log      zerolog.Logger

	availableBytes func() int64
}

// New returns a Controller for node, reading assignments from reg and
// fetching segment bytes from bs. availableBytes reports free disk
// space to advertise on each heartbeat; pass nil to always report 0.
func New(node string, port int, baseDir string, ttl time.Duration, schemaSQL string, reg *registry.HostRegistry, lk *lock.Lock, bs bulk.Store, availableBytes func() int64, logger zerolog.Logger) *Controller {
	if availableBytes == nil {
		availableBytes = func() int64 { return 0 }
	}
	return &Controller{
		Node:           node,
		Port:           port,
		BaseDir:        baseDir,
		TTL:            ttl,
		Schema:         schemaSQL,
		registry:       reg,
		lock:           lk,
		bulkStore:      bs,
		availableBytes: availableBytes,
		log:            logger.With().Str("component", "local").Str("node", node).Logger(),
	}
}

// Heartbeat upserts this host's trough-nodes row with current
// available bytes.
func (c *Controller) Heartbeat(ctx context.Context) error {
	return c.registry.Heartbeat(store.ServiceRecord{
		ID:             c.Node,
		Role:           roleNodes,
		Node:           c.Node,
		Port:           c.Port,
		AvailableBytes: c.availableBytes(),
		TTL:            c.TTL,
	})
}

// CopySegmentFromBulkStore streams entry from the bulk store to
// localPath. The copy aborts on the first error encountered on the
// source stream, mirroring HostRegistry.BulkHeartbeat's
// first-error-fatal semantics.
func (c *Controller) CopySegmentFromBulkStore(ctx context.Context, entry cluster.BulkStoreEntry, localPath string) error {
	src, err := c.bulkStore.Open(ctx, entry.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", terrors.ErrCopyFailed, entry.Path, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dirOf(localPath), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", terrors.ErrCopyFailed, localPath, err)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", terrors.ErrCopyFailed, localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: copy %s: %v", terrors.ErrCopyFailed, entry.Path, err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// SyncSegments runs one reconciliation tick: heartbeat, diff assigned
// segments against local disk, copy anything missing, then heartbeat
// again with updated state. The two heartbeat calls are required
// behavior: the first advertises this host is alive before potentially
// slow copies begin, the second advertises the trough-read rows for
// segments that just became locally available.
func (c *Controller) SyncSegments(ctx context.Context) error {
	if err := c.Heartbeat(ctx); err != nil {
		return err
	}

	assigned, err := c.registry.SegmentsForHost(c.Node)
	if err != nil {
		return err
	}

	var readerRows []store.ServiceRecord
	for _, a := range assigned {
		seg := segment.New(a.Segment, a.RemotePath, c.registry, c.lock)
		localPath := seg.LocalPath(c.BaseDir)

		if !seg.LocalSegmentExists(c.BaseDir) {
			entry := cluster.BulkStoreEntry{Path: a.RemotePath, Length: a.Bytes}
			if err := c.CopySegmentFromBulkStore(ctx, entry, localPath); err != nil {
				c.log.Error().Err(err).Str("segment", a.Segment).Msg("copy failed, skipping")
				continue
			}
		}

		readerRows = append(readerRows, store.ServiceRecord{
			ID:      c.Node + ":" + a.Segment,
			Role:    roleRead,
			Node:    c.Node,
			Segment: a.Segment,
			Port:    c.Port,
			TTL:     c.TTL,
		})
	}

	if len(readerRows) > 0 {
		if err := c.registry.BulkHeartbeat(readerRows); err != nil {
			return err
		}
	}

	return c.Heartbeat(ctx)
}

// ProvisionWritableSegment idempotently materializes segmentID's local
// file (applying the controller's configured schema only on first
// creation) and registers this host's trough-write row for it.
func (c *Controller) ProvisionWritableSegment(ctx context.Context, segmentID string) error {
	seg := segment.New(segmentID, "", c.registry, c.lock)
	if err := seg.ProvisionLocalSegment(ctx, c.BaseDir, c.Schema); err != nil {
		return fmt.Errorf("%w: %v", terrors.ErrProvisionFailed, err)
	}

	return c.registry.Heartbeat(store.ServiceRecord{
		ID:      c.Node + ":" + segmentID,
		Role:    "trough-write",
		Node:    c.Node,
		Segment: segmentID,
		Port:    c.Port,
		TTL:     c.TTL,
	})
}

// Query runs a read-only SQL statement against segmentID's local file.
// Callers are responsible for ensuring the segment is actually present
// on this host; a missing file surfaces as a plain open error.
func (c *Controller) Query(ctx context.Context, segmentID, sql string) ([]map[string]any, error) {
	seg := segment.New(segmentID, "", c.registry, c.lock)
	return seg.QueryLocalSegment(ctx, c.BaseDir, sql)
}

// Exec runs a write SQL statement against segmentID's local file and
// returns the number of rows affected.
func (c *Controller) Exec(ctx context.Context, segmentID, stmt string) (int64, error) {
	seg := segment.New(segmentID, "", c.registry, c.lock)
	return seg.ExecLocalSegment(ctx, c.BaseDir, stmt)
}

// ListenChangeFeed reads Deltas off sub and triggers an immediate
// SyncSegments whenever one names this host, short-circuiting the
// regular poll interval. It returns when sub's connection fails or ctx
// is canceled; callers should treat that as informational, not fatal —
// the regular Run ticker keeps reconciling regardless.
func (c *Controller) ListenChangeFeed(ctx context.Context, sub *changefeed.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d, err := sub.Next()
		if err != nil {
			c.log.Debug().Err(err).Msg("changefeed subscription ended")
			return
		}
		if d.Host != c.Node {
			continue
		}
		if err := c.SyncSegments(ctx); err != nil {
			c.log.Error().Err(err).Msg("changefeed-triggered sync failed")
		}
	}
}

// Run calls SyncSegments on interval until ctx is canceled.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		if err := c.SyncSegments(ctx); err != nil {
			c.log.Error().Err(err).Msg("sync tick failed")
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
