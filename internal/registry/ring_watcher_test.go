package registry

import (
	"testing"
	"time"

	"github.com/dreamware/trough/internal/store"
)

func TestRingWatcherRefreshPopulatesRing(t *testing.T) {
	st := store.NewMemStore()
	reg := New(st)
	if err := reg.Heartbeat(store.ServiceRecord{ID: "host-a", Node: "host-a", Role: "trough-nodes"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	w := NewRingWatcher(reg, "trough-nodes", time.Hour)
	w.refresh()

	if !w.Ring().HasHosts() {
		t.Fatal("ring should have hosts after refresh")
	}
	hosts := w.Ring().Hosts("228188", 1)
	if len(hosts) != 1 || hosts[0] != "host-a" {
		t.Errorf("Hosts() = %v, want [host-a]", hosts)
	}
}

func TestRingWatcherOnChangeFiresOnMembershipChange(t *testing.T) {
	st := store.NewMemStore()
	reg := New(st)
	if err := reg.Heartbeat(store.ServiceRecord{ID: "host-a", Node: "host-a", Role: "trough-nodes"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	changed := make(chan []string, 4)
	w := NewRingWatcher(reg, "trough-nodes", time.Hour)
	w.SetOnChange(func(hosts []string) { changed <- hosts })

	w.refresh()
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("expected onChange to fire on first refresh")
	}

	// Same host set: no further callback.
	w.refresh()
	select {
	case hosts := <-changed:
		t.Fatalf("unexpected onChange fired for unchanged host set: %v", hosts)
	case <-time.After(50 * time.Millisecond):
	}

	if err := reg.Heartbeat(store.ServiceRecord{ID: "host-b", Node: "host-b", Role: "trough-nodes"}); err != nil {
		t.Fatalf("heartbeat host-b: %v", err)
	}
	w.refresh()
	select {
	case hosts := <-changed:
		if len(hosts) != 2 {
			t.Errorf("onChange hosts = %v, want 2 hosts", hosts)
		}
	case <-time.After(time.Second):
		t.Fatal("expected onChange to fire after membership change")
	}
}
