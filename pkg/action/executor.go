package action

import (
	"context"
	"fmt"
	"time"

	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/job"
	"github.com/wrench-sim/wrench/pkg/metrics"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

// diskTransferRate is the simulated bytes/sec every FileRead/Write/
// Copy action moves data at; FileDelete takes no simulated time.
// ExecutionHost has no disk
// bandwidth field of its own (§3 only models cores/RAM/flop rate), so
// this is a single module-wide constant rather than a per-host one.
const diskTransferRate float64 = 500e6

// Options configures a Run call with the pieces that vary by
// deployment (thread-startup overhead) versus simulation (clock).
type Options struct {
	Clock                 simclock.Clock
	Store                 *storage.Store
	ThreadStartupOverhead time.Duration
}

// Run executes one started action to completion, failure, or
// cancellation: it reserves host resources, transitions the action
// through Started -> {Completed, Failed, Killed}, and always releases
// what it reserved. ctx cancellation surfaces as JobTimeout when ctx's
// deadline passed and as JobKilled otherwise; an action whose pool is
// down when its simulation ends fails with HostError.
func Run(ctx context.Context, j *job.Job, id types.ActionID, pool *host.Pool, cores int, ram int64, opts Options) error {
	cj := j.CompoundJob()
	a, ok := cj.Actions[id]
	if !ok {
		return &failure.InvalidArgument{Field: "id", Reason: "unknown action id"}
	}

	if cores <= 0 {
		return failAction(j, id, &failure.InvalidArgument{Field: "cores", Reason: "must be positive"}, opts.Clock)
	}
	if ram < a.Resources.MinRAMBytes {
		return failAction(j, id, &failure.NotEnoughResources{JobID: cj.ID, Service: pool.Name()}, opts.Clock)
	}

	if err := pool.Reserve(cores, ram); err != nil {
		return failAction(j, id, err, opts.Clock)
	}

	start := opts.Clock.Now()
	exec := types.ActionExecution{
		StartDate:      start,
		ExecutionHost:  pool.Name(),
		CoresAllocated: cores,
		RAMAllocated:   ram,
	}
	_ = j.TransitionAction(id, types.ActionStarted, nil)

	metrics.ActionsStarted.WithLabelValues(string(a.Kind)).Inc()
	runErr := simulate(ctx, a, pool, cores, opts)
	if runErr == nil && pool.IsDown() {
		runErr = &failure.HostError{Host: pool.Name()}
	}
	if runErr != nil && ctx.Err() != nil {
		runErr = &failure.JobKilled{JobID: cj.ID}
		if ctx.Err() == context.DeadlineExceeded {
			runErr = &failure.JobTimeout{JobID: cj.ID}
		}
	}
	pool.Release(cores, ram)

	exec.EndDate = opts.Clock.Now()
	metrics.ActionDuration.WithLabelValues(string(a.Kind)).Observe(exec.EndDate.Sub(exec.StartDate).Seconds())

	if runErr != nil {
		exec.FailureCause = runErr
		state := types.ActionFailed
		if ctx.Err() != nil {
			state = types.ActionKilled
		}
		_ = j.TransitionAction(id, state, &exec)
		metrics.ActionsCompleted.WithLabelValues(string(a.Kind), string(state)).Inc()
		return runErr
	}

	_ = j.TransitionAction(id, types.ActionCompleted, &exec)
	metrics.ActionsCompleted.WithLabelValues(string(a.Kind), string(types.ActionCompleted)).Inc()
	return nil
}

func failAction(j *job.Job, id types.ActionID, cause error, clock simclock.Clock) error {
	now := clock.Now()
	exec := types.ActionExecution{StartDate: now, EndDate: now, FailureCause: cause}
	_ = j.TransitionAction(id, types.ActionFailed, &exec)
	return cause
}

// simulate dispatches to the per-kind timing model. It returns the
// ctx error unchanged on cancellation/timeout so Run can classify it;
// Run, not simulate, checks whether the host went down.
func simulate(ctx context.Context, a *types.Action, pool *host.Pool, cores int, opts Options) error {
	switch a.Kind {
	case types.ActionCompute:
		return runCompute(ctx, a, pool, cores, opts)
	case types.ActionSleep:
		return sleepCtx(ctx, opts.Clock, a.Sleep.Duration)
	case types.ActionFileRead:
		return runFileRead(ctx, a, opts)
	case types.ActionFileWrite:
		return runFileWrite(ctx, a, opts)
	case types.ActionFileCopy:
		return runFileCopy(ctx, a, opts)
	case types.ActionFileDelete:
		return runFileDelete(ctx, a, opts)
	case types.ActionFileRegistryAdd:
		opts.Store.Write(a.File.Location, a.File.Bytes)
		return nil
	case types.ActionFileRegistryDelete:
		return opts.Store.Delete(a.File.Location)
	case types.ActionCustom:
		return runCustom(a)
	case types.ActionMPI:
		return runMPI(ctx, a, pool, opts)
	default:
		return &failure.JobTypeNotSupported{JobID: a.JobID, Service: pool.Name()}
	}
}

func runCompute(ctx context.Context, a *types.Action, pool *host.Pool, cores int, opts Options) error {
	spec := pool.Spec()
	model := a.Compute.ParallelModel
	if model == nil {
		model = types.AmdahlConstEfficiency{Alpha: 0}
	}
	eff := model.Efficiency(cores)
	if eff <= 0 {
		eff = 1e-9
	}
	rate := float64(cores) * spec.FlopRate * eff
	compute := time.Duration(a.Compute.Flops / rate * float64(time.Second))
	startup := time.Duration(cores) * opts.ThreadStartupOverhead
	return sleepCtx(ctx, opts.Clock, compute+startup)
}

func runMPI(ctx context.Context, a *types.Action, pool *host.Pool, opts Options) error {
	spec := pool.Spec()
	totalCores := a.MPI.NumProcesses * a.MPI.CoresPerProcess
	if totalCores <= 0 {
		return &failure.InvalidArgument{Field: "mpi.cores", Reason: "numProcesses*coresPerProcess must be positive"}
	}
	rate := float64(totalCores) * spec.FlopRate
	compute := time.Duration(a.MPI.Flops / rate * float64(time.Second))
	startup := time.Duration(totalCores) * opts.ThreadStartupOverhead
	return sleepCtx(ctx, opts.Clock, compute+startup)
}

func runFileRead(ctx context.Context, a *types.Action, opts Options) error {
	size, err := opts.Store.Read(a.File.Location)
	if err != nil {
		return err
	}
	return sleepCtx(ctx, opts.Clock, transferDuration(size))
}

func runFileWrite(ctx context.Context, a *types.Action, opts Options) error {
	if err := sleepCtx(ctx, opts.Clock, transferDuration(a.File.Bytes)); err != nil {
		return err
	}
	opts.Store.Write(a.File.Location, a.File.Bytes)
	return nil
}

func runFileCopy(ctx context.Context, a *types.Action, opts Options) error {
	size, err := opts.Store.Read(a.File.SourceLocation)
	if err != nil {
		return err
	}
	if err := sleepCtx(ctx, opts.Clock, transferDuration(size)); err != nil {
		return err
	}
	return opts.Store.Copy(a.File.SourceLocation, a.File.Location)
}

func runFileDelete(ctx context.Context, a *types.Action, opts Options) error {
	return opts.Store.Delete(a.File.Location)
}

func runCustom(a *types.Action) error {
	if a.Custom == nil || a.Custom.Fn == nil {
		return &failure.InvalidArgument{Field: "custom.fn", Reason: "no function supplied"}
	}
	if err := a.Custom.Fn(a.Args); err != nil {
		if cause, ok := err.(failure.Cause); ok {
			return cause
		}
		return &failure.FatalFailure{Reason: fmt.Sprintf("custom action %s: %v", a.Name, err)}
	}
	return nil
}

func transferDuration(bytes int64) time.Duration {
	return time.Duration(float64(bytes) / diskTransferRate * float64(time.Second))
}

// sleepCtx waits for d simulated seconds on clock, returning ctx.Err()
// if ctx is cancelled first.
func sleepCtx(ctx context.Context, clock simclock.Clock, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
