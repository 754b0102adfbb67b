package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/trough/internal/ring"
)

// RingWatcher keeps a ring.Ring in sync with the live "trough-nodes"
// hosts reported by a HostRegistry, polling on an interval rather than
// requiring every caller to re-derive the host set on each placement
// decision.
type RingWatcher struct {
	registry  *HostRegistry
	ring      *ring.Ring
	onChange  func(hosts []string)
	ctx       context.Context
	cancel    context.CancelFunc
	interval  time.Duration
	role      string
	mu        sync.RWMutex
	wg        sync.WaitGroup
	lastHosts string
}

// NewRingWatcher returns a RingWatcher that refreshes r every interval
// with the live hosts for role.
func NewRingWatcher(reg *HostRegistry, role string, interval time.Duration) *RingWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &RingWatcher{
		registry: reg,
		role:     role,
		interval: interval,
		ring:     ring.New(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetOnChange installs a callback invoked whenever the watched host set
// changes (by membership, not just heartbeat refresh).
func (w *RingWatcher) SetOnChange(callback func(hosts []string)) {
	w.onChange = callback
}

// Ring returns the ring.Ring kept up to date by this watcher. Safe to
// call concurrently with Start.
func (w *RingWatcher) Ring() *ring.Ring {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ring
}

// Start begins the refresh loop in the current goroutine, blocking
// until ctx (or the watcher's own Stop) is canceled.
func (w *RingWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()

	if ctx == nil {
		ctx = w.ctx
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh()

	for {
		select {
		case <-ticker.C:
			w.refresh()
		case <-ctx.Done():
			return
		case <-w.ctx.Done():
			return
		}
	}
}

// Stop cancels the refresh loop and waits for it to exit.
func (w *RingWatcher) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *RingWatcher) refresh() {
	records, err := w.registry.GetHosts(w.role)
	if err != nil {
		return
	}

	hosts := make([]string, 0, len(records))
	for _, rec := range records {
		hosts = append(hosts, rec.Node)
	}
	slices.Sort(hosts)
	key := strings.Join(hosts, ",")

	w.mu.Lock()
	changed := key != w.lastHosts
	w.lastHosts = key
	w.ring.Update(hosts)
	w.mu.Unlock()

	if changed && w.onChange != nil {
		go w.onChange(hosts)
	}
}
