package master

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/trough/internal/bulk"
	"github.com/dreamware/trough/internal/lock"
	"github.com/dreamware/trough/internal/registry"
	"github.com/dreamware/trough/internal/store"
)

func newTestController(t *testing.T, node string, bulkDir string) (*Controller, *registry.HostRegistry, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	reg := registry.New(st)
	lk := lock.New(st)
	c := New(node, 9091, 9090, time.Minute, reg, lk, bulk.NewLocalStore(bulkDir), zerolog.Nop())
	return c, reg, st
}

func TestHoldElectionFirstCallerWins(t *testing.T) {
	c, _, st := newTestController(t, "host-a", t.TempDir())
	if err := c.HoldElection(context.Background()); err != nil {
		t.Fatalf("HoldElection: %v", err)
	}

	c2 := New("host-b", 9091, 9090, time.Minute, registry.New(st), lock.New(st), bulk.NewLocalStore(t.TempDir()), zerolog.Nop())
	if err := c2.HoldElection(context.Background()); err == nil {
		t.Fatal("expected host-b to lose the election")
	}
}

func TestWaitForHostsReturnsOnceMinHostsLive(t *testing.T) {
	c, reg, _ := newTestController(t, "host-a", t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = reg.Heartbeat(store.ServiceRecord{ID: "host-a", Node: "host-a", Role: "trough-nodes"})
	}()

	if err := c.WaitForHosts(ctx, 1, 5*time.Millisecond); err != nil {
		t.Fatalf("WaitForHosts: %v", err)
	}
}

func TestAssignSegmentsPlacesMinimumAssignments(t *testing.T) {
	dir := t.TempDir()
	mustWriteSegmentFile(t, dir, "123456.sqlite", 1024)

	c, reg, _ := newTestController(t, "host-a", dir)
	if err := reg.Heartbeat(store.ServiceRecord{ID: "host-a", Node: "host-a", Role: "trough-nodes"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	if err := c.AssignSegments(context.Background()); err != nil {
		t.Fatalf("AssignSegments: %v", err)
	}

	copies, err := reg.SegmentsForHost("host-a")
	if err != nil {
		t.Fatalf("segments for host: %v", err)
	}
	if len(copies) != 1 || copies[0].Segment != "123456" {
		t.Errorf("SegmentsForHost = %+v, want one row for segment 123456", copies)
	}
}

func TestProvisionWritableSegmentReturnsExistingLockHolder(t *testing.T) {
	c, _, _ := newTestController(t, "host-a", t.TempDir())

	if _, _, err := c.lock.Acquire("segX", "host-b", 9090); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	url, err := c.ProvisionWritableSegment(context.Background(), "segX")
	if err != nil {
		t.Fatalf("ProvisionWritableSegment: %v", err)
	}
	if want := "http://host-b:9091/?segment=segX"; url != want {
		t.Errorf("ProvisionWritableSegment() = %q, want %q", url, want)
	}
}

func mustWriteSegmentFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
