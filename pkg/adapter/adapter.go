package adapter

import (
	"context"

	"github.com/wrench-sim/wrench/pkg/types"
)

// InvocationView is the subset of an Invocation an external scheduler
// is allowed to see: enough to place it, nothing that would let it
// reach back into scheduler internals.
type InvocationView struct {
	ID             string
	FunctionID     string
	ImageID        string
	ImageSizeBytes int64
	RAMLimitBytes  int64
}

// HostView is the subset of per-node state an external scheduler
// needs to place work.
type HostView struct {
	Name         string
	CoresFree    int
	ImageOnDisk  map[string]bool
	ImageInRAM   map[string]bool
}

// SystemState is the read-only snapshot handed to a SchedulerAdapter
// each tick.
type SystemState struct {
	Hosts []HostView
}

// Placement is a SchedulerAdapter's decision: which images to copy
// head->node, which to load node-disk->node-RAM, and which
// invocations to start where, all per §4.5 step 2.
type Placement struct {
	Copy  map[string][]string          // host -> images to copy from head storage
	Load  map[string][]string          // host -> images to load into RAM
	Start map[string][]string          // host -> invocation IDs to start, in order
}

// SchedulerAdapter decides placement for the schedulable invocation
// list given the current system state.
type SchedulerAdapter interface {
	Schedule(ctx context.Context, schedulable []InvocationView, state SystemState) (Placement, error)
}

// HostSelector places a BatchJob's requested nodes. batch.Scheduler
// implements it; which of §4.4's FIRSTFIT/BESTFIT/ROUNDROBIN
// algorithms it applies is picked by a switch on its Config, not by
// swapping HostSelector implementations.
type HostSelector interface {
	SelectHosts(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error)
}
