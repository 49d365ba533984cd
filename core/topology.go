package core

import (
	"fmt"
	"runtime"
)

// TopologyGroupCapacity is the maximum number of groups a topology can
// hold, and therefore the maximum worker count of an executor.
const TopologyGroupCapacity = 64

// TopologyGroup describes one unit of compute an executor will dedicate a
// worker to.
type TopologyGroup struct {
	// GroupIndex is the position within the topology; assigned by
	// PushGroup.
	GroupIndex int

	// Name is a diagnostic label used in logs and worker goroutine
	// context. Defaults to "worker-<index>".
	Name string

	// ProcessorIndex hints which logical processor the group represents.
	// Go offers no portable thread pinning, so this is carried for
	// diagnostics and placement heuristics only.
	ProcessorIndex int

	// CacheGroup tags groups believed to share a cache domain; the stealing
	// policy prefers victims with the same tag before walking the rest.
	CacheGroup int
}

// logicalCPUCount reports the logical processors available. Indirected for
// tests exercising enumeration-derived constructors on fixed shapes.
var logicalCPUCount = runtime.NumCPU

// Topology is an immutable-after-construction list of groups, one per
// executor worker. Build one with the From* constructors or by pushing
// groups explicitly, then hand it to NewExecutor; the executor copies it.
type Topology struct {
	groups []TopologyGroup
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{}
}

// GroupCapacity returns the fixed maximum group count.
func (t *Topology) GroupCapacity() int { return TopologyGroupCapacity }

// GroupCount returns the number of groups pushed so far.
func (t *Topology) GroupCount() int { return len(t.groups) }

// Group returns a copy of the group at index i.
func (t *Topology) Group(i int) (TopologyGroup, bool) {
	if i < 0 || i >= len(t.groups) {
		return TopologyGroup{}, false
	}
	return t.groups[i], true
}

// PushGroup appends a group, assigning its GroupIndex and defaulting its
// name when empty. Returns ErrResourceExhausted once the topology is full.
func (t *Topology) PushGroup(group TopologyGroup) error {
	if len(t.groups) >= TopologyGroupCapacity {
		return fmt.Errorf("topology full (%d groups): %w",
			TopologyGroupCapacity, ErrResourceExhausted)
	}
	group.GroupIndex = len(t.groups)
	if group.Name == "" {
		group.Name = fmt.Sprintf("worker-%d", group.GroupIndex)
	}
	t.groups = append(t.groups, group)
	return nil
}

// NewTopologyFromGroupCount builds a topology with count sequential groups,
// ignoring machine shape. count is clamped to [1, TopologyGroupCapacity].
func NewTopologyFromGroupCount(count int) *Topology {
	if count < 1 {
		count = 1
	}
	if count > TopologyGroupCapacity {
		count = TopologyGroupCapacity
	}
	t := NewTopology()
	for i := 0; i < count; i++ {
		_ = t.PushGroup(TopologyGroup{ProcessorIndex: i, CacheGroup: i})
	}
	return t
}

// NewTopologyFromPhysicalCores builds one group per physical core, up to
// maxCores. The Go runtime exposes only logical processor counts, so each
// logical processor is treated as a core; platforms where SMT pairs share a
// core simply get more (smaller) groups.
func NewTopologyFromPhysicalCores(maxCores int) *Topology {
	count := logicalCPUCount()
	if maxCores > 0 && count > maxCores {
		count = maxCores
	}
	return NewTopologyFromGroupCount(count)
}

// NewTopologyFromUniqueCacheGroups builds one group per presumed cache
// domain, up to maxGroups. Without a portable cache-hierarchy query,
// adjacent logical processor pairs are assumed to be SMT siblings sharing a
// domain; a machine with n logical processors yields ceil(n/2) groups, each
// hinted at the first processor of its pair.
func NewTopologyFromUniqueCacheGroups(maxGroups int) *Topology {
	cpus := logicalCPUCount()
	count := (cpus + 1) / 2
	if maxGroups > 0 && count > maxGroups {
		count = maxGroups
	}
	if count > TopologyGroupCapacity {
		count = TopologyGroupCapacity
	}
	t := NewTopology()
	for i := 0; i < count; i++ {
		_ = t.PushGroup(TopologyGroup{ProcessorIndex: i * 2, CacheGroup: i})
	}
	return t
}
