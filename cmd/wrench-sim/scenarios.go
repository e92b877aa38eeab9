package main

import (
	"context"
	"fmt"
	"time"

	"github.com/wrench-sim/wrench/pkg/action"
	"github.com/wrench-sim/wrench/pkg/adapter"
	"github.com/wrench-sim/wrench/pkg/batch"
	"github.com/wrench-sim/wrench/pkg/cloud"
	"github.com/wrench-sim/wrench/pkg/config"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/job"
	"github.com/wrench-sim/wrench/pkg/serverless"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

type scenario struct {
	description string
	run         func(cfg config.Config) ([]*types.Event, error)
}

var scenarios = map[string]scenario{
	"s1": {"batch: single standard job dispatches and completes", scenarioS1},
	"s2": {"batch: queue of three jobs, two terminated", scenarioS2},
	"s3": {"batch: pilot job hosts and loses a nested standard job", scenarioS3},
	"s4": {"serverless: cold-start invocation warms the image cache", scenarioS4},
	"s5": {"cloud: VM migrates hosts while an action runs on it", scenarioS5},
	"s6": {"batch: wall-time limit kills a job that overruns it", scenarioS6},
}

// drainAvailable returns every event currently buffered on sub
// without blocking.
func drainAvailable(sub events.Subscriber) []*types.Event {
	var out []*types.Event
	for {
		select {
		case e := <-sub:
			out = append(out, e)
		default:
			return out
		}
	}
}

// collectEvents advances clock in one-second steps, draining sub
// after each tick, until want events have arrived or maxTicks elapse.
func collectEvents(sub events.Subscriber, clock *simclock.VirtualClock, want, maxTicks int) []*types.Event {
	var got []*types.Event
	for tick := 0; tick < maxTicks && len(got) < want; tick++ {
		time.Sleep(time.Millisecond)
		clock.Advance(time.Second)
		got = append(got, drainAvailable(sub)...)
	}
	got = append(got, drainAvailable(sub)...)
	return got
}

// advanceTicks advances clock by ticks simulated seconds, one at a
// time, giving woken goroutines a chance to run between each step.
func advanceTicks(clock *simclock.VirtualClock, ticks int) {
	for i := 0; i < ticks; i++ {
		time.Sleep(time.Millisecond)
		clock.Advance(time.Second)
	}
}

func newBatchScheduler(cfg config.Config, registry *host.Registry, clock simclock.Clock, broker *events.Broker) *batch.Scheduler {
	bc := batch.Config{
		SchedulingAlgorithm: batch.SchedulingAlgorithm(cfg.BatchSchedulingAlgorithm),
		QueueOrdering:       batch.QueueOrdering(cfg.BatchQueueOrderingAlgorithm),
		HostSelection:       batch.HostSelection(cfg.HostSelectionAlgorithm),
	}
	return batch.NewScheduler(bc, registry, clock, storage.NewStore(), broker, cfg.ThreadStartupOverhead)
}

func sleepJob(id string, cores int, d time.Duration, now time.Time) (*job.Job, types.ActionID, error) {
	j := job.New(id, "wrench-sim", 1.0, now)
	aid, err := j.AddAction("sleep", types.ActionSleep, types.ResourceSpec{MinCores: cores, MaxCores: cores}, nil)
	if err != nil {
		return nil, 0, err
	}
	j.CompoundJob().Actions[aid].Sleep = &types.SleepParams{Duration: d}
	return j, aid, nil
}

func uniformHosts(n, cores int, ram int64) *host.Registry {
	registry := host.NewRegistry()
	for i := 0; i < n; i++ {
		registry.Register(types.ExecutionHost{
			Name:     fmt.Sprintf("h%d", i+1),
			Cores:    cores,
			RAMBytes: ram,
			Disks:    map[string]int64{"default": 10 << 30},
			FlopRate: 1e9,
		})
	}
	return registry
}

// scenarioS1: 4 hosts x 10 cores, one 60s/2-core standard job asking
// for N=2 nodes x c=4 cores, wall-time 5 minutes. Expect a completion
// around t=60s.
func scenarioS1(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(4, 10, 16<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	sched := newBatchScheduler(cfg, registry, clock, broker)
	sched.Start()
	defer sched.Stop()

	j, _, err := sleepJob("job-1", 2, 60*time.Second, clock.Now())
	if err != nil {
		return nil, err
	}
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 2, CoresPerNode: 4, WallTime: 5 * time.Minute}
	if err := sched.Submit(bj, j); err != nil {
		return nil, err
	}

	return collectEvents(sub, clock, 1, 90), nil
}

// scenarioS2: a 4-host cluster where each job claims every host
// (N=4, c=10), so only one of three submitted jobs runs at a time.
// job-2 (still pending) and job-1 (running) are terminated at t=1s;
// job-3 runs to completion.
func scenarioS2(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(4, 10, 16<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	sched := newBatchScheduler(cfg, registry, clock, broker)
	sched.Start()
	defer sched.Stop()

	for i := 1; i <= 3; i++ {
		j, _, err := sleepJob(fmt.Sprintf("job-%d", i), 10, 60*time.Second, clock.Now())
		if err != nil {
			return nil, err
		}
		bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 4, CoresPerNode: 10, WallTime: 5 * time.Minute}
		if err := sched.Submit(bj, j); err != nil {
			return nil, err
		}
	}

	time.Sleep(time.Millisecond)
	clock.Advance(time.Second)
	got := drainAvailable(sub)
	if err := sched.Terminate("job-2"); err != nil {
		return nil, fmt.Errorf("terminating job-2: %w", err)
	}
	if err := sched.Terminate("job-1"); err != nil {
		return nil, fmt.Errorf("terminating job-1: %w", err)
	}

	got = append(got, collectEvents(sub, clock, 2, 90)...)
	return got, nil
}

// scenarioS3: a pilot job (N=1, c=4, t=2min) hosts a nested standard
// job (60s, 2 cores) dispatched directly against the pilot's grant.
// The pilot is terminated at t=10s, killing the nested job first.
func scenarioS3(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(1, 4, 8<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	sched := newBatchScheduler(cfg, registry, clock, broker)
	sched.Start()
	defer sched.Stop()

	pilot := job.New("pilot-1", "wrench-sim", 1.0, clock.Now())
	bj := &types.BatchJob{Job: pilot.CompoundJob(), RequestedNodes: 1, CoresPerNode: 4, WallTime: 2 * time.Minute, IsPilot: true}
	if err := sched.Submit(bj, pilot); err != nil {
		return nil, err
	}

	got := collectEvents(sub, clock, 1, 5) // wait for PilotJobStarted

	pool, ok := sched.RunningPool("pilot-1")
	if !ok {
		return nil, fmt.Errorf("pilot-1 never dispatched")
	}

	inner, aid, err := sleepJob("inner-1", 2, 60*time.Second, clock.Now())
	if err != nil {
		return nil, err
	}
	inner.Submit(clock.Now())

	innerCtx, innerCancel := context.WithCancel(context.Background())
	innerDone := make(chan struct{})
	go func() {
		defer close(innerDone)
		runNestedStandardJob(innerCtx, broker, clock, inner, aid, pool, 2, 0, &failure.JobKilled{JobID: "inner-1"})
	}()

	advanceTicks(clock, 10)
	got = append(got, drainAvailable(sub)...)

	innerCancel()
	<-innerDone
	got = append(got, drainAvailable(sub)...)

	if err := sched.Terminate("pilot-1"); err != nil {
		return nil, fmt.Errorf("terminating pilot-1: %w", err)
	}
	got = append(got, collectEvents(sub, clock, 1, 10)...)
	return got, nil
}

// runNestedStandardJob drives one action directly against a pilot's
// grant, outside BatchScheduler's own driver, and publishes the
// job-level event BatchScheduler would otherwise have published.
func runNestedStandardJob(ctx context.Context, broker *events.Broker, clock simclock.Clock, j *job.Job, id types.ActionID, pool *host.Pool, cores int, ram int64, killCause error) {
	runErr := action.Run(ctx, j, id, pool, cores, ram, action.Options{Clock: clock, Store: storage.NewStore()})
	_ = runErr
	cause := causeOf(j, id, ctx, killCause)
	kind := types.EventStandardJobCompleted
	if cause != nil {
		kind = types.EventStandardJobFailed
	}
	broker.Publish(&types.Event{Kind: kind, JobID: j.CompoundJob().ID, Cause: cause, Date: clock.Now()})
}

func causeOf(j *job.Job, id types.ActionID, ctx context.Context, killCause error) error {
	a := j.CompoundJob().Actions[id]
	if a.State == types.ActionCompleted {
		return nil
	}
	if ctx.Err() != nil {
		return killCause
	}
	if exec := a.LatestExecution(); exec != nil {
		return exec.FailureCause
	}
	return killCause
}

// scenarioS4: register one function (1GB image) and invoke it three
// times on a 1-host, 2-core cluster. The first invocation pays the
// download+copy+load cold-start cost; the rest reuse the warmed
// caches.
func scenarioS4(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(1, 2, 4<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	sc := serverless.Config{
		HeadDiskCapacityBytes: 4 << 30,
		NodeDiskCacheBytes:    2 << 30,
		NodeRAMCacheBytes:     1 << 30,
		DownloadRate:          256 << 20,
		CopyRate:              256 << 20,
		LoadRate:              256 << 20,
	}
	sched := serverless.NewScheduler(sc, registry, clock, storage.NewStore(), broker, adapter.NewNativeAdapter())
	sched.Start()
	defer sched.Stop()

	fn := &types.RegisteredFunction{
		ID:                  "fn-1",
		Name:                "echo",
		Fn:                  func(input []byte) ([]byte, error) { return input, nil },
		ImageID:             "image-1",
		ImageSizeBytes:      1 << 30,
		TimeLimit:           time.Minute,
		DiskSpaceLimitBytes: 128 << 20,
		RAMLimitBytes:       256 << 20,
	}
	if err := sched.RegisterFunction(fn); err != nil {
		return nil, err
	}

	for i := 0; i < 3; i++ {
		if _, err := sched.Invoke(fn.ID, nil); err != nil {
			return nil, fmt.Errorf("invoke %d: %w", i, err)
		}
	}

	return collectEvents(sub, clock, 3, 120), nil
}

// scenarioS5: two 10-core hosts; create a VM (4 cores, 1GB) on h1,
// run a 60s/4-core action on it, migrate the VM to h2 at t=10s.
func scenarioS5(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(2, 10, 16<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	mgr := cloud.NewManager(registry, clock, broker)
	vm, err := mgr.CreateVM(4, 1<<30, "h1")
	if err != nil {
		return nil, err
	}
	if err := mgr.StartVM(vm.ID); err != nil {
		return nil, err
	}

	vmPool := host.NewPool(types.ExecutionHost{
		Name:     vm.ID,
		Cores:    vm.Cores,
		RAMBytes: vm.RAMBytes,
		Disks:    map[string]int64{"default": 1 << 30},
		FlopRate: 1e9,
	})
	j, aid, err := sleepJob("vm-action", 4, 60*time.Second, clock.Now())
	if err != nil {
		return nil, err
	}
	j.Submit(clock.Now())

	actionDone := make(chan error, 1)
	go func() {
		actionDone <- action.Run(context.Background(), j, aid, vmPool, 4, 0, action.Options{Clock: clock, Store: storage.NewStore()})
	}()

	for elapsed := 0; elapsed < 10; elapsed++ {
		time.Sleep(time.Millisecond)
		clock.Advance(time.Second)
	}

	migrateDone := make(chan error, 1)
	go func() { migrateDone <- mgr.MigrateVM(context.Background(), vm.ID, "h2") }()

	var migrateErr, runErr error
	migrated, ran := false, false
	for !migrated || !ran {
		select {
		case migrateErr = <-migrateDone:
			migrated = true
		case runErr = <-actionDone:
			ran = true
		default:
			time.Sleep(time.Millisecond)
			clock.Advance(time.Second)
		}
	}
	if migrateErr != nil {
		return nil, fmt.Errorf("migrating VM: %w", migrateErr)
	}
	if runErr != nil {
		return nil, fmt.Errorf("action on VM failed: %w", runErr)
	}

	return []*types.Event{
		{Kind: types.EventStandardJobCompleted, JobID: j.CompoundJob().ID, Date: clock.Now()},
	}, nil
}

// scenarioS6: a 65s/1-core job submitted with wall-time t=1 minute on
// a 4-core host is killed by the wall-time enforcer around t=60s.
func scenarioS6(cfg config.Config) ([]*types.Event, error) {
	registry := uniformHosts(1, 4, 8<<30)
	clock := simclock.NewVirtualClock(time.Unix(0, 0))
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	sched := newBatchScheduler(cfg, registry, clock, broker)
	sched.Start()
	defer sched.Stop()

	j, _, err := sleepJob("job-1", 1, 65*time.Second, clock.Now())
	if err != nil {
		return nil, err
	}
	bj := &types.BatchJob{Job: j.CompoundJob(), RequestedNodes: 1, CoresPerNode: 4, WallTime: time.Minute}
	if err := sched.Submit(bj, j); err != nil {
		return nil, err
	}

	return collectEvents(sub, clock, 1, 90), nil
}
