// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hspl

import (
	"fmt"

	"mitigated.example.com/engine/internal/eventmodel"
)

// Config holds the optimizer's configuration knobs, enumerated in §4.3.
// MergingMinBits/MergingMaxBits are host-bits (not prefix-length): pass 3
// starts at MergingMinBits and widens by increasing host-bits toward
// MergingMaxBits, which is equivalent to decrementing the prefix length —
// see the Open Question resolution in DESIGN.md.
type Config struct {
	MergeInclusions    bool
	MergeWithAnyPorts  bool
	MergeWithSubnets   bool
	MergingThreshold   int
	MergingMinBits     int
	MergingMaxBits     int
}

// DefaultConfig returns reasonable defaults matching the literal
// end-to-end scenarios in §8 (threshold 10, subnet widening from /31
// upward).
func DefaultConfig() Config {
	return Config{
		MergeInclusions:   true,
		MergeWithAnyPorts: true,
		MergeWithSubnets:  true,
		MergingThreshold:  10,
		MergingMinBits:    1,
		MergingMaxBits:    8,
	}
}

// Optimizer is the HSPL set-algebra optimizer — the core of the core
// (§4.3). It is pure CPU work with no suspension points (§5).
type Optimizer struct {
	cfg Config
}

// NewOptimizer creates an optimizer with the given configuration.
func NewOptimizer(cfg Config) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// bucketKey is one (key1,key2,key3,key4) coordinate of the multi-level
// index described in §4.3.
type bucketKey struct {
	group   string
	prefix  int
	network uint32
	port    string
}

// Optimize runs the three gated passes over the subset of the set's HSPLs
// whose object matches the IPv4 endpoint pattern; HSPLs with an opaque
// object are left untouched and passed through unchanged (§4.3 "Failure
// semantics": regex mismatch on an object -> leave the HSPL alone).
func (o *Optimizer) Optimize(set *Set) (*Set, error) {
	var arena []*HSPL
	var untouched []*HSPL
	for _, h := range set.Items {
		if h.Object.Opaque {
			untouched = append(untouched, h)
		} else {
			arena = append(arena, h)
		}
	}

	alive := make([]bool, len(arena))
	for i := range alive {
		alive[i] = true
	}

	if o.cfg.MergeInclusions {
		o.passInclusion(arena, alive)
	}

	if o.cfg.MergeWithAnyPorts && aliveCount(alive) > o.cfg.MergingThreshold {
		o.passAnyPort(arena, alive)
	}

	if o.cfg.MergeWithSubnets {
		o.passSubnet(arena, alive)
	}

	out := make([]*HSPL, 0, len(arena)+len(untouched))
	for i, a := range alive {
		if a {
			out = append(out, arena[i])
		}
	}
	out = append(out, untouched...)

	optimized := &Set{Context: set.Context, Items: out}
	if err := optimized.Validate(); err != nil {
		return nil, err
	}
	return optimized, nil
}

func aliveCount(alive []bool) int {
	n := 0
	for _, a := range alive {
		if a {
			n++
		}
	}
	return n
}

// groupKey implements key₁ = hash(subject, action, traffic-constraints).
func groupKey(h *HSPL) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%s",
		h.Subject.String(), h.Action, h.TrafficConstraints.Type,
		h.TrafficConstraints.MaxConnections, h.TrafficConstraints.RateLimit)
}

// buildIndex constructs the multi-level index over the currently-alive
// arena entries. An HSPL with prefix length p and address a is inserted
// at every (key₁, ℓ, network(a,ℓ), port) for ℓ ∈ [0..p], and also at
// port="*" (§4.3 "Index").
func buildIndex(arena []*HSPL, alive []bool) map[bucketKey][]int {
	idx := make(map[bucketKey][]int)
	for i, h := range arena {
		if !alive[i] {
			continue
		}
		k1 := groupKey(h)
		p := h.Object.Prefix
		port := h.Object.Port
		for l := 0; l <= p; l++ {
			net := h.Object.NetworkAddr(l)
			key := bucketKey{k1, l, net, port}
			idx[key] = append(idx[key], i)
			if port != eventmodel.PortWildcard {
				wkey := bucketKey{k1, l, net, eventmodel.PortWildcard}
				idx[wkey] = append(idx[wkey], i)
			}
		}
	}
	return idx
}

// passInclusion is Pass 1 (§4.3): for each alive HSPL, its own
// (prefix,network,port) bucket contains exactly the HSPLs it covers —
// everything else found there is removed. Iterating the arena in
// ascending index order and skipping already-dead entries gives the
// recommended deterministic survivor policy (smallest source index
// first) for the case of mutually-covering duplicates.
func (o *Optimizer) passInclusion(arena []*HSPL, alive []bool) {
	idx := buildIndex(arena, alive)
	for i, h := range arena {
		if !alive[i] {
			continue
		}
		key := bucketKey{groupKey(h), h.Object.Prefix, h.Object.NetworkAddr(h.Object.Prefix), h.Object.Port}
		for _, j := range idx[key] {
			if j == i || !alive[j] {
				continue
			}
			alive[j] = false
		}
	}
}

// passAnyPort is Pass 2 (§4.3): HSPLs sharing the same group/prefix/
// network but differing only by port are coalesced into one HSPL whose
// port is rewritten to "*".
func (o *Optimizer) passAnyPort(arena []*HSPL, alive []bool) {
	idx := buildIndex(arena, alive)
	visited := make([]bool, len(arena))

	for i, h := range arena {
		if !alive[i] || visited[i] {
			continue
		}
		key := bucketKey{groupKey(h), h.Object.Prefix, h.Object.NetworkAddr(h.Object.Prefix), eventmodel.PortWildcard}
		group := dedupAliveUnvisited(idx[key], alive, visited)
		if len(group) < 2 {
			visited[i] = true
			continue
		}
		survivor := minIndex(group)
		arena[survivor].Object = arena[survivor].Object.WithAnyPort()
		for _, j := range group {
			visited[j] = true
			if j != survivor {
				alive[j] = false
			}
		}
	}
}

// passSubnet is Pass 3 (§4.3): starting at host-bits = MergingMinBits and
// widening toward MergingMaxBits, HSPLs sharing a common network prefix
// are coalesced into one HSPL whose object becomes NET/bits:*. Stops
// once the set size falls at or below the merging threshold, or the
// host-bits range is exhausted.
func (o *Optimizer) passSubnet(arena []*HSPL, alive []bool) {
	if aliveCount(alive) <= o.cfg.MergingThreshold {
		return
	}

	for hostBits := o.cfg.MergingMinBits; hostBits <= o.cfg.MergingMaxBits; hostBits++ {
		prefixLen := 32 - hostBits
		if prefixLen < 0 {
			prefixLen = 0
		}
		if prefixLen > 32 {
			continue
		}

		idx := buildIndex(arena, alive)
		visited := make([]bool, len(arena))

		for i, h := range arena {
			if !alive[i] || visited[i] {
				continue
			}
			if h.Object.Prefix < prefixLen {
				// Already coarser than this level; nothing to widen.
				visited[i] = true
				continue
			}
			net := h.Object.NetworkAddr(prefixLen)
			key := bucketKey{groupKey(h), prefixLen, net, eventmodel.PortWildcard}
			group := dedupAliveUnvisited(idx[key], alive, visited)
			if len(group) < 2 {
				visited[i] = true
				continue
			}
			survivor := minIndex(group)
			arena[survivor].Object = arena[survivor].Object.WithPrefix(prefixLen).WithAnyPort()
			for _, j := range group {
				visited[j] = true
				if j != survivor {
					alive[j] = false
				}
			}
		}

		if aliveCount(alive) <= o.cfg.MergingThreshold {
			return
		}
	}
}

func dedupAliveUnvisited(indices []int, alive, visited []bool) []int {
	seen := make(map[int]struct{}, len(indices))
	var out []int
	for _, j := range indices {
		if !alive[j] || visited[j] {
			continue
		}
		if _, ok := seen[j]; ok {
			continue
		}
		seen[j] = struct{}{}
		out = append(out, j)
	}
	return out
}

func minIndex(indices []int) int {
	m := indices[0]
	for _, i := range indices[1:] {
		if i < m {
			m = i
		}
	}
	return m
}
