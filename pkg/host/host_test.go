package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wrench-sim/wrench/pkg/types"
)

func spec(name string, cores int, ram int64) types.ExecutionHost {
	return types.ExecutionHost{
		Name:     name,
		Cores:    cores,
		RAMBytes: ram,
		Disks:    map[string]int64{"default": 1 << 30},
		FlopRate: 1e9,
	}
}

func TestReserveAndReleaseRoundTrip(t *testing.T) {
	p := NewPool(spec("h1", 4, 8<<30))
	assert.NoError(t, p.Reserve(2, 4<<30))
	cores, ram := p.Available()
	assert.Equal(t, 2, cores)
	assert.Equal(t, int64(4<<30), ram)

	p.Release(2, 4<<30)
	cores, ram = p.Available()
	assert.Equal(t, 4, cores)
	assert.Equal(t, int64(8<<30), ram)
}

func TestReserveRejectsOverCapacity(t *testing.T) {
	p := NewPool(spec("h1", 2, 4<<30))
	err := p.Reserve(4, 1<<30)
	assert.Error(t, err)
}

func TestReserveRejectsWhenDown(t *testing.T) {
	p := NewPool(spec("h1", 4, 8<<30))
	p.SetDown(true)
	err := p.Reserve(1, 1<<20)
	assert.Error(t, err)
}

func TestScratchAccountingRejectsOverCapacity(t *testing.T) {
	p := NewPool(spec("h1", 4, 8<<30))
	assert.NoError(t, p.ReserveScratch("default", "job-1", 1<<29))
	err := p.ReserveScratch("default", "job-2", 1<<31)
	assert.Error(t, err)
	p.ReleaseScratch("job-1")
	assert.NoError(t, p.ReserveScratch("default", "job-2", 1<<29))
}

func TestRegistryOrderedMatchesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(spec("h1", 4, 1<<30))
	r.Register(spec("h2", 8, 2<<30))

	names := []string{}
	for _, p := range r.Ordered() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"h1", "h2"}, names)
}

func TestRegistrySnapshotReflectsAvailability(t *testing.T) {
	r := NewRegistry()
	p := r.Register(spec("h1", 4, 8<<30))
	assert.NoError(t, p.Reserve(1, 1<<30))

	snap := r.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 3, snap[0].CoresFree)
}
