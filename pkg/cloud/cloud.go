package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/log"
	"github.com/wrench-sim/wrench/pkg/metrics"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/types"
)

// ramMigrationRate is the simulated bytes/sec a VM's RAM can be moved
// over during a migration. Single module-wide constant, same
// simplification pkg/action makes for disk transfer rate: the data
// model has no per-link bandwidth field to draw from.
const ramMigrationRate float64 = 250e6

// Manager is the CloudVMManager / VirtualizedCluster (§4.6): VM
// lifecycle over a shared host.Registry.
type Manager struct {
	registry *host.Registry
	clock    simclock.Clock
	broker   *events.Broker
	logger   zerolog.Logger

	mu     sync.Mutex
	vms    map[string]*types.VirtualMachine
	nextID int
}

// NewManager creates a CloudVMManager bound to registry's physical
// hosts.
func NewManager(registry *host.Registry, clock simclock.Clock, broker *events.Broker) *Manager {
	return &Manager{
		registry: registry,
		clock:    clock,
		broker:   broker,
		logger:   log.WithComponent("cloud_vm_manager"),
		vms:      make(map[string]*types.VirtualMachine),
	}
}

// CreateVM reserves (cores, ram) on physicalHost (or, if empty, the
// first host in registration order with enough free capacity) and
// returns a new VM in the Down state. The reservation is made at
// creation time, not at startVM, so the resource-accounting invariant
// holds for this VM's slice of its host from the moment it exists.
func (m *Manager) CreateVM(cores int, ram int64, physicalHost string) (*types.VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pool *host.Pool
	if physicalHost != "" {
		pool = m.registry.Get(physicalHost)
		if pool == nil {
			return nil, &failure.InvalidArgument{Field: "physical_host", Reason: "no such host " + physicalHost}
		}
		if err := pool.Reserve(cores, ram); err != nil {
			return nil, err
		}
	} else {
		for _, p := range m.registry.Ordered() {
			if err := p.Reserve(cores, ram); err == nil {
				pool = p
				break
			}
		}
		if pool == nil {
			return nil, &failure.NotEnoughResources{Service: "cloud_vm_manager"}
		}
	}

	m.nextID++
	vm := &types.VirtualMachine{
		ID:           fmt.Sprintf("vm-%d", m.nextID),
		PhysicalHost: pool.Name(),
		Cores:        cores,
		RAMBytes:     ram,
		State:        types.VMDown,
		CreatedAt:    m.clock.Now(),
	}
	m.vms[vm.ID] = vm
	metrics.VMsRunning.Set(float64(m.countRunningLocked()))
	return vm, nil
}

// StartVM transitions a Down VM to Running. It changes only the VM's
// state: the physical host's slice stays reserved from CreateVM, and
// no execution service is created for the VM.
func (m *Manager) StartVM(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, err := m.getLocked(id)
	if err != nil {
		return err
	}
	if vm.State != types.VMDown {
		return &failure.InvalidArgument{Field: "state", Reason: fmt.Sprintf("vm %s is not down", id)}
	}
	vm.State = types.VMRunning
	metrics.VMsRunning.Set(float64(m.countRunningLocked()))
	return nil
}

// Suspend transitions a Running VM to Suspended.
func (m *Manager) Suspend(id string) error {
	return m.transition(id, types.VMRunning, types.VMSuspended)
}

// Resume transitions a Suspended VM back to Running.
func (m *Manager) Resume(id string) error {
	return m.transition(id, types.VMSuspended, types.VMRunning)
}

// Shutdown transitions a Running VM to Down.
func (m *Manager) Shutdown(id string) error {
	return m.transition(id, types.VMRunning, types.VMDown)
}

func (m *Manager) transition(id string, from, to types.VMState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, err := m.getLocked(id)
	if err != nil {
		return err
	}
	if vm.State != from {
		return &failure.InvalidArgument{Field: "state", Reason: fmt.Sprintf("vm %s is not %s", id, from)}
	}
	vm.State = to
	metrics.VMsRunning.Set(float64(m.countRunningLocked()))
	return nil
}

// Destroy releases a Down VM's reserved resources and removes it.
// Legal only from Down, per §4.6.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, err := m.getLocked(id)
	if err != nil {
		return err
	}
	if vm.State != types.VMDown {
		return &failure.InvalidArgument{Field: "state", Reason: fmt.Sprintf("vm %s must be down to be destroyed", id)}
	}
	if pool := m.registry.Get(vm.PhysicalHost); pool != nil {
		pool.Release(vm.Cores, vm.RAMBytes)
	}
	delete(m.vms, id)
	return nil
}

func (m *Manager) getLocked(id string) (*types.VirtualMachine, error) {
	vm, ok := m.vms[id]
	if !ok {
		return nil, &failure.InvalidArgument{Field: "vm_id", Reason: "no such vm " + id}
	}
	return vm, nil
}

func (m *Manager) countRunningLocked() int {
	n := 0
	for _, vm := range m.vms {
		if vm.State == types.VMRunning {
			n++
		}
	}
	return n
}

// MigrateVM moves a Running VM from its current physical host to
// dest: it reserves the same slice on dest, sleeps a RAM-proportional
// simulated duration, then frees the source's reservation. If ctx is
// cancelled during the sleep it releases dest and returns the ctx
// error; if either host is down when the sleep ends it releases dest
// and marks the VM Down with HostError.
func (m *Manager) MigrateVM(ctx context.Context, id, dest string) error {
	m.mu.Lock()
	vm, err := m.getLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if vm.State != types.VMRunning {
		m.mu.Unlock()
		return &failure.InvalidArgument{Field: "state", Reason: fmt.Sprintf("vm %s is not running", id)}
	}
	destPool := m.registry.Get(dest)
	if destPool == nil {
		m.mu.Unlock()
		return &failure.InvalidArgument{Field: "dest", Reason: "no such host " + dest}
	}
	srcPool := m.registry.Get(vm.PhysicalHost)
	if err := destPool.Reserve(vm.Cores, vm.RAMBytes); err != nil {
		m.mu.Unlock()
		metrics.VMMigrations.WithLabelValues("rejected").Inc()
		return err
	}
	src := vm.PhysicalHost
	m.mu.Unlock()

	d := time.Duration(float64(vm.RAMBytes) / ramMigrationRate * float64(time.Second))
	sleepErr := sleepCtx(ctx, m.clock, d)

	m.mu.Lock()
	defer m.mu.Unlock()

	if sleepErr != nil {
		destPool.Release(vm.Cores, vm.RAMBytes)
		metrics.VMMigrations.WithLabelValues("cancelled").Inc()
		return sleepErr
	}
	if (srcPool != nil && srcPool.IsDown()) || destPool.IsDown() {
		vm.State = types.VMDown
		destPool.Release(vm.Cores, vm.RAMBytes)
		metrics.VMMigrations.WithLabelValues("failed").Inc()
		return &failure.HostError{Host: dest}
	}

	if srcPool != nil {
		srcPool.Release(vm.Cores, vm.RAMBytes)
	}
	vm.PhysicalHost = dest
	metrics.VMMigrations.WithLabelValues("succeeded").Inc()
	return nil
}

func sleepCtx(ctx context.Context, clock simclock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
