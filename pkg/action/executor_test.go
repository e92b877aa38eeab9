package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/job"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

func testHost() *host.Pool {
	return host.NewPool(types.ExecutionHost{
		Name:     "h1",
		Cores:    4,
		RAMBytes: 8 << 30,
		Disks:    map[string]int64{"default": 1 << 30},
		FlopRate: 1e9,
	})
}

func runToCompletion(t *testing.T, clock *simclock.VirtualClock, done chan error) error {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("action did not complete")
		default:
			time.Sleep(time.Millisecond)
			clock.Advance(time.Hour)
		}
	}
}

func TestRunSleepCompletes(t *testing.T) {
	j := job.New("job-1", "sub", 1, time.Unix(0, 0))
	id, err := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: 1, MaxCores: 1}, nil)
	assert.NoError(t, err)
	j.CompoundJob().Actions[id].Sleep = &types.SleepParams{Duration: 10 * time.Second}
	j.Submit(time.Unix(0, 0))

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	pool := testHost()
	opts := Options{Clock: clock, Store: storage.NewStore()}

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), j, id, pool, 1, 1<<20, opts) }()

	err = runToCompletion(t, clock, done)
	assert.NoError(t, err)
	assert.Equal(t, types.ActionCompleted, j.CompoundJob().Actions[id].State)
}

func TestRunRejectsZeroCores(t *testing.T) {
	j := job.New("job-1", "sub", 1, time.Unix(0, 0))
	id, _ := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: 1, MaxCores: 1}, nil)
	j.CompoundJob().Actions[id].Sleep = &types.SleepParams{Duration: time.Second}
	j.Submit(time.Unix(0, 0))

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	opts := Options{Clock: clock, Store: storage.NewStore()}

	err := Run(context.Background(), j, id, testHost(), 0, 1<<20, opts)
	assert.Error(t, err)
	assert.Equal(t, types.ActionFailed, j.CompoundJob().Actions[id].State)
}

func TestRunRejectsInsufficientRAM(t *testing.T) {
	j := job.New("job-1", "sub", 1, time.Unix(0, 0))
	id, _ := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: 1, MaxCores: 1, MinRAMBytes: 1 << 30}, nil)
	j.CompoundJob().Actions[id].Sleep = &types.SleepParams{Duration: time.Second}
	j.Submit(time.Unix(0, 0))

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	opts := Options{Clock: clock, Store: storage.NewStore()}

	err := Run(context.Background(), j, id, testHost(), 1, 1<<10, opts)
	assert.Error(t, err)
}

func TestRunFileReadPropagatesFileNotFound(t *testing.T) {
	j := job.New("job-1", "sub", 1, time.Unix(0, 0))
	id, _ := j.AddAction("read", types.ActionFileRead, types.ResourceSpec{MinCores: 1, MaxCores: 1}, nil)
	j.CompoundJob().Actions[id].File = &types.FileParams{Location: "/missing"}
	j.Submit(time.Unix(0, 0))

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	opts := Options{Clock: clock, Store: storage.NewStore()}

	err := Run(context.Background(), j, id, testHost(), 1, 1<<10, opts)
	assert.Error(t, err)
	assert.Equal(t, types.ActionFailed, j.CompoundJob().Actions[id].State)
}

func TestRunCancelSurfacesKilled(t *testing.T) {
	j := job.New("job-1", "sub", 1, time.Unix(0, 0))
	id, _ := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: 1, MaxCores: 1}, nil)
	j.CompoundJob().Actions[id].Sleep = &types.SleepParams{Duration: time.Hour}
	j.Submit(time.Unix(0, 0))

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	opts := Options{Clock: clock, Store: storage.NewStore()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, j, id, testHost(), 1, 1<<10, opts) }()

	cancel()
	err := <-done
	assert.Error(t, err)
	assert.Equal(t, types.ActionKilled, j.CompoundJob().Actions[id].State)
}
