package cloud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/types"
)

func newTestManager() (*Manager, *host.Registry, *simclock.VirtualClock) {
	registry := host.NewRegistry()
	registry.Register(types.ExecutionHost{Name: "h1", Cores: 4, RAMBytes: 8 << 30})
	registry.Register(types.ExecutionHost{Name: "h2", Cores: 4, RAMBytes: 8 << 30})

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()

	return NewManager(registry, clock, broker), registry, clock
}

func TestCreateVMReservesResourcesAndStartsDown(t *testing.T) {
	m, registry, _ := newTestManager()
	vm, err := m.CreateVM(2, 2<<30, "")
	require.NoError(t, err)
	assert.Equal(t, types.VMDown, vm.State)

	pool := registry.Get(vm.PhysicalHost)
	cores, ram := pool.Available()
	assert.Equal(t, 2, cores)
	assert.Equal(t, int64(6<<30), ram)
}

func TestCreateVMRejectsOverCapacity(t *testing.T) {
	m, _, _ := newTestManager()
	_, err := m.CreateVM(100, 1<<30, "")
	assert.Error(t, err)
}

func TestDestroyOnlyLegalFromDown(t *testing.T) {
	m, _, _ := newTestManager()
	vm, err := m.CreateVM(1, 1<<30, "")
	require.NoError(t, err)
	require.NoError(t, m.StartVM(vm.ID))

	assert.Error(t, m.Destroy(vm.ID))

	require.NoError(t, m.Shutdown(vm.ID))
	assert.NoError(t, m.Destroy(vm.ID))
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	m, _, _ := newTestManager()
	vm, err := m.CreateVM(1, 1<<30, "")
	require.NoError(t, err)
	require.NoError(t, m.StartVM(vm.ID))

	require.NoError(t, m.Suspend(vm.ID))
	assert.Error(t, m.Suspend(vm.ID)) // already suspended
	require.NoError(t, m.Resume(vm.ID))
	assert.Equal(t, types.VMRunning, vm.State)
}

func TestMigrateVMMovesReservationAtomically(t *testing.T) {
	m, registry, clock := newTestManager()
	vm, err := m.CreateVM(2, 2<<30, "h1")
	require.NoError(t, err)
	require.NoError(t, m.StartVM(vm.ID))

	done := make(chan error, 1)
	go func() { done <- m.MigrateVM(context.Background(), vm.ID, "h2") }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, "h2", vm.PhysicalHost)
			h1Cores, h1RAM := registry.Get("h1").Available()
			assert.Equal(t, 4, h1Cores)
			assert.Equal(t, int64(8<<30), h1RAM)
			h2Cores, _ := registry.Get("h2").Available()
			assert.Equal(t, 2, h2Cores)
			return
		case <-deadline:
			t.Fatal("migration never completed")
		default:
			time.Sleep(time.Millisecond)
			clock.Advance(time.Second)
		}
	}
}

func TestMigrateVMRejectsWhenDestTooSmall(t *testing.T) {
	m, registry, _ := newTestManager()
	vm, err := m.CreateVM(2, 2<<30, "h1")
	require.NoError(t, err)
	require.NoError(t, m.StartVM(vm.ID))

	_, err = registry.Get("h2").Available()
	require.NoError(t, registry.Get("h2").Reserve(3, 1<<20)) // leave only 1 core free on h2

	err = m.MigrateVM(context.Background(), vm.ID, "h2")
	assert.Error(t, err)
}
