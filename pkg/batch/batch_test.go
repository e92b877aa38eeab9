package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/job"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

func newTestScheduler(cfg Config) (*Scheduler, *host.Registry, *simclock.VirtualClock) {
	registry := host.NewRegistry()
	registry.Register(types.ExecutionHost{Name: "h1", Cores: 4, RAMBytes: 8 << 30, Disks: map[string]int64{"default": 1 << 30}, FlopRate: 1e9})
	registry.Register(types.ExecutionHost{Name: "h2", Cores: 4, RAMBytes: 8 << 30, Disks: map[string]int64{"default": 1 << 30}, FlopRate: 1e9})

	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()

	s := NewScheduler(cfg, registry, clock, storage.NewStore(), broker, 0)
	return s, registry, clock
}

func newSleepJob(t *testing.T, id string, d time.Duration) *job.Job {
	t.Helper()
	j := job.New(id, "sub", 1.0, time.Unix(0, 0))
	aid, err := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: 1, MaxCores: 1}, nil)
	assert.NoError(t, err)
	j.CompoundJob().Actions[aid].Sleep = &types.SleepParams{Duration: d}
	return j
}

func TestSubmitRejectsInvalidArguments(t *testing.T) {
	s, _, _ := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	j := newSleepJob(t, "job-1", time.Second)
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 0, CoresPerNode: 1, WallTime: time.Minute}
	err := s.Submit(bj, j)
	assert.Error(t, err)
}

func TestSubmitRejectsOverCapacity(t *testing.T) {
	s, _, _ := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	j := newSleepJob(t, "job-1", time.Second)
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 1, CoresPerNode: 100, WallTime: time.Minute}
	err := s.Submit(bj, j)
	assert.Error(t, err)
}

func TestFCFSDispatchesAndCompletesJob(t *testing.T) {
	s, _, clock := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	s.Start()
	defer s.Stop()

	j := newSleepJob(t, "job-1", 5*time.Second)
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 1, CoresPerNode: 2, WallTime: time.Minute}
	assert.NoError(t, s.Submit(bj, j))

	deadline := time.After(2 * time.Second)
	for bj.State != types.BatchCompleted {
		select {
		case <-deadline:
			t.Fatalf("job never completed, state=%s", bj.State)
		default:
			time.Sleep(time.Millisecond)
			clock.Advance(time.Second)
		}
	}
}

func TestWallTimeoutKillsJob(t *testing.T) {
	s, _, clock := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	s.Start()
	defer s.Stop()

	j := newSleepJob(t, "job-1", time.Hour)
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 1, CoresPerNode: 1, WallTime: 5 * time.Second}
	assert.NoError(t, s.Submit(bj, j))

	deadline := time.After(2 * time.Second)
	for bj.State != types.BatchTimedOut {
		select {
		case <-deadline:
			t.Fatalf("job never timed out, state=%s", bj.State)
		default:
			time.Sleep(time.Millisecond)
			clock.Advance(time.Second)
		}
	}
}

func TestTerminatePendingJobRemovesItSilently(t *testing.T) {
	s, registry, _ := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	_ = registry

	j := newSleepJob(t, "job-1", time.Second)
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 2, CoresPerNode: 4, WallTime: time.Minute}
	assert.NoError(t, s.Submit(bj, j))

	assert.NoError(t, s.Terminate("job-1"))
	assert.Error(t, s.Terminate("job-1"))
}

func TestHostSelectionFirstFitReservesInOrder(t *testing.T) {
	s, _, _ := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: FirstFit})
	allocs, err := s.selectFirstFit(2, 2, 1<<20)
	assert.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, []string{allocs[0].Host, allocs[1].Host})
}

func TestHostSelectionRoundRobinAdvancesPointer(t *testing.T) {
	s, _, _ := newTestScheduler(Config{SchedulingAlgorithm: FCFS, HostSelection: RoundRobin})
	a1, err := s.selectRoundRobin(1, 1, 1<<20)
	assert.NoError(t, err)
	a2, err := s.selectRoundRobin(1, 1, 1<<20)
	assert.NoError(t, err)
	assert.NotEqual(t, a1[0].Host, a2[0].Host)
}
