// Package ring implements the consistent-hash ring used to pick candidate
// hosts for a segment. See doc.go for complete package documentation.
package ring

import (
	"hash/fnv"
	"sort"
	"strconv"
)

// virtualNodesPerHost controls how many points each host owns on the
// ring. Higher values smooth the distribution at the cost of a larger
// table; 64 keeps rebalancing churn close to the theoretical 1/n while
// staying cheap to rebuild on every host-set change.
const virtualNodesPerHost = 64

// point is one virtual node's position on the ring.
type point struct {
	host string
	hash uint32
}

// Ring maps a segment id to an ordered list of candidate hosts. It is
// rebuilt wholesale on every Update call rather than incrementally
// maintained, which keeps the implementation simple and is cheap enough
// at the host-set sizes Trough targets (hundreds, not millions).
type Ring struct {
	points []point
	hosts  []string
}

// New returns a Ring with no hosts; Hosts returns nothing until Update is
// called.
func New() *Ring {
	return &Ring{}
}

// Update rebuilds the ring's virtual-node table for the given host set.
// Calling Update repeatedly with the same (possibly reordered) host set
// produces an identical table, so placement decisions are stable across
// ticks when the host set hasn't changed.
func (r *Ring) Update(hosts []string) {
	sorted := append([]string(nil), hosts...)
	sort.Strings(sorted)

	points := make([]point, 0, len(sorted)*virtualNodesPerHost)
	for _, host := range sorted {
		for i := 0; i < virtualNodesPerHost; i++ {
			points = append(points, point{host: host, hash: hashKey(host + "#" + strconv.Itoa(i))})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].hash < points[j].hash })

	r.points = points
	r.hosts = sorted
}

// Hosts returns up to n distinct hosts for segmentID, walking the ring
// clockwise from hash(segmentID). The first result is conventionally
// treated as the primary/writer candidate by MasterSyncController.
func (r *Ring) Hosts(segmentID string, n int) []string {
	if len(r.points) == 0 || n <= 0 {
		return nil
	}
	if n > len(r.hosts) {
		n = len(r.hosts)
	}

	target := hashKey(segmentID)
	start := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= target })

	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for i := 0; i < len(r.points) && len(out) < n; i++ {
		p := r.points[(start+i)%len(r.points)]
		if seen[p.host] {
			continue
		}
		seen[p.host] = true
		out = append(out, p.host)
	}
	return out
}

// HasHosts reports whether Update has ever been called with a non-empty
// host set.
func (r *Ring) HasHosts() bool {
	return len(r.hosts) > 0
}

func hashKey(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}
