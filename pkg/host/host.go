package host

import (
	"sync"

	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/metrics"
	"github.com/wrench-sim/wrench/pkg/types"
)

// Pool is the live resource accounting for one ExecutionHost: the
// static spec plus the currently-available slice of it. Every
// dispatch/release goes through Reserve/Release so
// Σ(allocated) ≤ capacity holds at every instant (§5's invariant).
type Pool struct {
	mu sync.Mutex

	spec types.ExecutionHost

	coresFree int
	ramFree   int64
	scratch   map[string]int64 // per-job scratch usage, mount point "default"

	down bool
}

// NewPool creates a Pool at full capacity for the given host spec.
func NewPool(spec types.ExecutionHost) *Pool {
	return &Pool{
		spec:      spec,
		coresFree: spec.Cores,
		ramFree:   spec.RAMBytes,
		scratch:   make(map[string]int64),
	}
}

// Name returns the host's name.
func (p *Pool) Name() string { return p.spec.Name }

// Spec returns the static host spec.
func (p *Pool) Spec() types.ExecutionHost { return p.spec }

// SetDown marks the host as down (ServiceIsDown on any further
// dispatch) or back up.
func (p *Pool) SetDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

// IsDown reports the host's current availability.
func (p *Pool) IsDown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.down
}

// Reserve atomically decrements the pool by (cores, ram) if both are
// available, returning a structured rejection cause otherwise.
func (p *Pool) Reserve(cores int, ram int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.down {
		return &failure.ServiceIsDown{Service: p.spec.Name}
	}
	if cores <= 0 {
		return &failure.InvalidArgument{Field: "cores", Reason: "must be positive"}
	}
	if cores > p.coresFree || ram > p.ramFree {
		return &failure.NotEnoughResources{Service: p.spec.Name}
	}
	p.coresFree -= cores
	p.ramFree -= ram
	p.publishLocked()
	return nil
}

// Release returns (cores, ram) to the pool. Callers must release
// exactly what they reserved.
func (p *Pool) Release(cores int, ram int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coresFree += cores
	p.ramFree += ram
	if p.coresFree > p.spec.Cores {
		p.coresFree = p.spec.Cores
	}
	if p.ramFree > p.spec.RAMBytes {
		p.ramFree = p.spec.RAMBytes
	}
	p.publishLocked()
}

// ReserveScratch grows the named job's scratch usage on the given
// mount, rejecting if it would exceed the mount's capacity.
func (p *Pool) ReserveScratch(mount, jobID string, bytes int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cap, ok := p.spec.Disks[mount]
	if !ok {
		return &failure.InvalidArgument{Field: "mount", Reason: "no such disk on host " + p.spec.Name}
	}
	used := int64(0)
	for _, b := range p.scratch {
		used += b
	}
	if used+bytes > cap {
		return &failure.NotEnoughResources{Service: p.spec.Name}
	}
	p.scratch[jobID] += bytes
	return nil
}

// ReleaseScratch frees all scratch space held by jobID, called on job
// termination per §4.3.
func (p *Pool) ReleaseScratch(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.scratch, jobID)
}

// Available returns the current free (cores, ram).
func (p *Pool) Available() (int, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coresFree, p.ramFree
}

func (p *Pool) publishLocked() {
	metrics.HostCoresFree.WithLabelValues(p.spec.Name).Set(float64(p.coresFree))
	metrics.HostRAMFreeBytes.WithLabelValues(p.spec.Name).Set(float64(p.ramFree))
}

// Registry owns every execution host's Pool and is the lookup every
// scheduler shares. It also satisfies metrics.HostLister.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Pool
	order []string // registration order, for FIRSTFIT/ROUNDROBIN
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Pool)}
}

// Register adds a host to the registry in registration order.
func (r *Registry) Register(spec types.ExecutionHost) *Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := NewPool(spec)
	r.pools[spec.Name] = p
	r.order = append(r.order, spec.Name)
	return p
}

// Get returns the pool for name, or nil if unknown.
func (r *Registry) Get(name string) *Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[name]
}

// Ordered returns every pool in registration order.
func (r *Registry) Ordered() []*Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.pools[name])
	}
	return out
}

// Snapshot implements metrics.HostLister.
func (r *Registry) Snapshot() []metrics.HostSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]metrics.HostSnapshot, 0, len(r.order))
	for _, name := range r.order {
		cores, ram := r.pools[name].Available()
		out = append(out, metrics.HostSnapshot{Name: name, CoresFree: cores, RAMFreeMB: ram / (1 << 20)})
	}
	return out
}
