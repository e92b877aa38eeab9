package batch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wrench-sim/wrench/pkg/action"
	"github.com/wrench-sim/wrench/pkg/adapter"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/job"
	"github.com/wrench-sim/wrench/pkg/log"
	"github.com/wrench-sim/wrench/pkg/metrics"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

// pendingJob is a BatchJob waiting for admission, paired with the Job
// wrapper over its CompoundJob.
type pendingJob struct {
	batch *types.BatchJob
	job   *job.Job
}

// runningJob is a dispatched BatchJob: its nested allocation pool,
// the actions driver goroutine, and the cancel func wall-time
// enforcement / termination fire.
type runningJob struct {
	batch  *types.BatchJob
	job    *job.Job
	pool   *host.Pool
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *runningJob) requestedCores() int {
	return r.batch.RequestedNodes * r.batch.CoresPerNode
}

// Scheduler is the BatchScheduler (§4.4): a single cooperative-actor
// service that admits BatchJobs, dispatches them onto execution hosts
// according to the configured algorithm, enforces wall-time limits,
// and reports terminal events to its event bus.
type Scheduler struct {
	cfg      Config
	registry *host.Registry
	clock    simclock.Clock
	store    *storage.Store
	broker   *events.Broker
	logger   zerolog.Logger

	threadStartupOverhead time.Duration

	mu      sync.Mutex
	pending []*pendingJob
	running map[string]*runningJob
	rrIndex int

	wakeCh chan struct{}
	stopCh chan struct{}
}

// SelectHosts exposes the configured FIRSTFIT/BESTFIT/ROUNDROBIN
// placement algorithm to callers outside this package through
// adapter.HostSelector. Nothing in this module calls it through that
// interface; the ServerlessScheduler places invocations through its
// SchedulerAdapter instead.
func (s *Scheduler) SelectHosts(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectHosts(n, coresPerNode, ramPerNode)
}

var _ adapter.HostSelector = (*Scheduler)(nil)

// NewScheduler creates a BatchScheduler over the given host registry.
// threadStartupOverhead is charged per allocated core to every Compute
// action dispatched by this scheduler, per §4.2.
func NewScheduler(cfg Config, registry *host.Registry, clock simclock.Clock, store *storage.Store, broker *events.Broker, threadStartupOverhead time.Duration) *Scheduler {
	return &Scheduler{
		cfg:                   cfg,
		registry:              registry,
		clock:                 clock,
		store:                 store,
		broker:                broker,
		logger:                log.WithComponent("batch_scheduler"),
		threadStartupOverhead: threadStartupOverhead,
		running:               make(map[string]*runningJob),
		wakeCh:                make(chan struct{}, 1),
		stopCh:                make(chan struct{}),
	}
}

// Start begins the scheduler's main loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop performs the §4.4 shutdown sequence: every pending and running
// standard job fails with JobKilled, resources are freed, submitters
// are notified, and the main loop exits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, pj := range s.pending {
		s.failJob(pj.job, pj.batch, &failure.JobKilled{JobID: pj.batch.Job.ID})
	}
	s.pending = nil
	for id, rj := range s.running {
		s.killRunning(rj, &failure.JobKilled{JobID: id})
	}
	s.mu.Unlock()
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.wakeCh:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// tick runs one scheduling cycle: reap timed-out jobs, then drain the
// queue under the configured algorithm.
func (s *Scheduler) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconcileLocked()
	s.reapLocked()
	s.orderQueue()
	metrics.BatchQueueDepth.Set(float64(len(s.pending)))

	switch s.cfg.SchedulingAlgorithm {
	case Filler:
		s.dispatchFillerLocked()
	case EASYBackfill:
		s.dispatchEASYLocked()
	case ConservativeBackfill:
		s.dispatchConservativeLocked()
	default:
		s.dispatchFCFSLocked()
	}
}

func (s *Scheduler) reapLocked() {
	now := s.clock.Now()
	for id, rj := range s.running {
		if !rj.batch.WallDeadline.After(now) {
			s.killRunning(rj, &failure.JobTimeout{JobID: id})
		}
	}
}

// killRunning cancels a running job's driver, waits for it to fully
// stop, then releases its allocation and marks it TimedOut/Killed. The
// caller must hold s.mu; this is safe to call under that lock because
// driveJob itself never acquires s.mu (see reconcileLocked).
func (s *Scheduler) killRunning(rj *runningJob, cause error) {
	rj.cancel()
	<-rj.done
	if _, ok := s.running[rj.batch.Job.ID]; !ok {
		return // already cleaned up by a concurrent reconcile
	}
	rollback(rj.batch.Allocated, s.registry)
	if _, ok := cause.(*failure.JobTimeout); ok {
		rj.batch.State = types.BatchTimedOut
	} else {
		rj.batch.State = types.BatchKilled
	}
	delete(s.running, rj.batch.Job.ID)
	s.publishTerminal(rj.batch, cause)
}

// reconcileLocked removes every running job whose driver has already
// stopped on its own (job reached Completed/Failed without external
// cancellation), releasing its allocation and publishing its terminal
// event. The caller must hold s.mu.
func (s *Scheduler) reconcileLocked() {
	for id, rj := range s.running {
		select {
		case <-rj.done:
		default:
			continue
		}
		rollback(rj.batch.Allocated, s.registry)
		delete(s.running, id)
		if rj.job.CompoundJob().State == types.JobCompleted {
			rj.batch.State = types.BatchCompleted
			s.publishTerminal(rj.batch, nil)
		} else {
			rj.batch.State = types.BatchFailed
			s.publishTerminal(rj.batch, &failure.FatalFailure{Reason: "job ended without completing"})
		}
	}
}

// Submit performs §4.4's synchronous admission checks and, if they
// pass, enqueues the job for scheduling.
func (s *Scheduler) Submit(bj *types.BatchJob, j *job.Job) error {
	if bj.RequestedNodes <= 0 || bj.CoresPerNode <= 0 || bj.WallTime <= 0 {
		metrics.BatchJobsRejected.WithLabelValues("invalid_argument").Inc()
		return &failure.InvalidArgument{Field: "N/c/t", Reason: "must all be positive"}
	}

	_, maxCoresPerHost, maxRAMPerHost := s.clusterShapeLocked()
	if bj.RequestedNodes > len(s.registry.Ordered()) {
		metrics.BatchJobsRejected.WithLabelValues("not_enough_resources").Inc()
		return &failure.NotEnoughResources{JobID: bj.Job.ID}
	}
	if bj.CoresPerNode > maxCoresPerHost {
		metrics.BatchJobsRejected.WithLabelValues("not_enough_resources").Inc()
		return &failure.NotEnoughResources{JobID: bj.Job.ID}
	}
	if bj.RAMPerNode > maxRAMPerHost {
		metrics.BatchJobsRejected.WithLabelValues("not_enough_resources").Inc()
		return &failure.NotEnoughResources{JobID: bj.Job.ID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bj.ArrivalDate = s.clock.Now()
	bj.State = types.BatchPending
	s.pending = append(s.pending, &pendingJob{batch: bj, job: j})
	s.wake()
	return nil
}

func (s *Scheduler) clusterShapeLocked() (totalCores, maxCoresPerHost int, maxRAMPerHost int64) {
	for _, p := range s.registry.Ordered() {
		spec := p.Spec()
		totalCores += spec.Cores
		if spec.Cores > maxCoresPerHost {
			maxCoresPerHost = spec.Cores
		}
		if spec.RAMBytes > maxRAMPerHost {
			maxRAMPerHost = spec.RAMBytes
		}
	}
	return
}

// Terminate implements §4.4's terminate contract: silently drop a
// pending job, or kill a running one and notify its submitter.
// Terminating an already-terminated job returns NotAllowed.
func (s *Scheduler) Terminate(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pj := range s.pending {
		if pj.batch.Job.ID == jobID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			pj.batch.State = types.BatchKilled
			return nil
		}
	}
	if rj, ok := s.running[jobID]; ok {
		s.killRunning(rj, &failure.JobKilled{JobID: jobID})
		return nil
	}
	return &failure.NotAllowedTerminated{JobID: jobID}
}

// failJob marks a pending job Killed without ever having acquired
// resources (used by Stop).
func (s *Scheduler) failJob(j *job.Job, bj *types.BatchJob, cause error) {
	bj.State = types.BatchKilled
	_ = j.Terminate()
	s.publishTerminal(bj, cause)
}

func (s *Scheduler) publishTerminal(bj *types.BatchJob, cause error) {
	// A BatchJob wrapping exactly one action is a "standard job" in
	// WRENCH terms and gets the Standard* event kind; a genuine
	// multi-action DAG gets the Compound* kind. Both share the same
	// terminal bookkeeping, only the reported kind differs.
	completed, failed := types.EventStandardJobCompleted, types.EventStandardJobFailed
	if len(bj.Job.Actions) != 1 {
		completed, failed = types.EventCompoundJobCompleted, types.EventCompoundJobFailed
	}
	kind := completed
	if cause != nil {
		kind = failed
	}
	if bj.IsPilot {
		// A pilot job is a scheduling container, not a computation in
		// its own right: its own terminal event is always "expired",
		// regardless of whether it ran to its full walltime or was
		// killed early. Whatever it hosted publishes its own separate
		// terminal event.
		kind = types.EventPilotJobExpired
	}
	s.broker.Publish(&types.Event{
		Kind:  kind,
		JobID: bj.Job.ID,
		Cause: cause,
		Date:  s.clock.Now(),
	})
}

// RunningPool returns the nested allocation pool of a dispatched job,
// letting a pilot job's submitter run further actions directly against
// its grant via pkg/action instead of going through BatchScheduler's
// own per-action driver. Returns false if jobID isn't currently running.
func (s *Scheduler) RunningPool(jobID string) (*host.Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.running[jobID]
	if !ok {
		return nil, false
	}
	return rj.pool, true
}

// dispatch grants pj its host allocation, wires a nested pool and
// driver goroutine, and adds it to s.running. The caller must hold
// s.mu, and removes pj from s.pending itself once dispatch returns true.
func (s *Scheduler) dispatch(pj *pendingJob) bool {
	allocs, err := s.selectHosts(pj.batch.RequestedNodes, pj.batch.CoresPerNode, pj.batch.RAMPerNode)
	if err != nil {
		// Not enough free resources *right now*; admission already
		// established the job can fit the cluster eventually, so it
		// simply stays pending for a later tick.
		return false
	}

	timer := metrics.NewTimer()
	now := s.clock.Now()
	pj.batch.Allocated = allocs
	pj.batch.State = types.BatchRunning
	pj.batch.WallDeadline = now.Add(pj.batch.WallTime)
	pj.job.Submit(now)

	nested := nestedPool(pj.batch.Job.ID, allocs, s.registry)
	ctx, cancel := context.WithCancel(context.Background())
	rj := &runningJob{batch: pj.batch, job: pj.job, pool: nested, cancel: cancel, done: make(chan struct{})}
	s.running[pj.batch.Job.ID] = rj

	go s.driveJob(ctx, rj)

	if pj.batch.IsPilot {
		s.broker.Publish(&types.Event{Kind: types.EventPilotJobStarted, JobID: pj.batch.Job.ID, Date: now})
	}

	timer.ObserveDuration(metrics.BatchSchedulingLatency)
	metrics.BatchJobsDispatched.Inc()
	s.logger.Info().Str("job_id", pj.batch.Job.ID).Int("nodes", len(allocs)).Msg("dispatched batch job")
	return true
}

// nestedPool builds a synthetic host.Pool sized to a dispatched job's
// allocation so its actions draw against a budget scoped to exactly
// what was granted, instead of re-contending the shared registry.
// FlopRate is averaged across the allocated hosts.
func nestedPool(jobID string, allocs []types.HostAllocation, registry *host.Registry) *host.Pool {
	var totalCores int
	var totalRAM int64
	var totalFlop float64
	for _, a := range allocs {
		totalCores += a.Cores
		totalRAM += a.RAMBytes
		if p := registry.Get(a.Host); p != nil {
			totalFlop += p.Spec().FlopRate
		}
	}
	flopRate := totalFlop
	if len(allocs) > 0 {
		flopRate /= float64(len(allocs))
	}
	return host.NewPool(types.ExecutionHost{
		Name:     jobID,
		Cores:    totalCores,
		RAMBytes: totalRAM,
		Disks:    map[string]int64{"default": 10 << 30},
		FlopRate: flopRate,
	})
}

// driveJob runs every Ready action of rj's job to completion,
// launching newly-ready actions as dependencies clear, until the job
// reaches a terminal state or ctx is cancelled (wall-timeout or
// explicit kill). It never touches s.mu or s.running directly —
// reconcileLocked and killRunning do that once rj.done closes, so
// there is no lock ordering between this goroutine and the scheduler
// loop to get wrong.
func (s *Scheduler) driveJob(ctx context.Context, rj *runningJob) {
	defer close(rj.done)
	defer s.wake()

	launched := make(map[types.ActionID]bool)
	completions := make(chan types.ActionID, 64)
	var wg sync.WaitGroup

	// Wake the scheduler loop once the wall deadline passes on s.clock,
	// so reapLocked sees it without waiting for the real-time ticker.
	wallAlarm := s.clock.After(rj.batch.WallDeadline.Sub(s.clock.Now()))

	for {
		cj := rj.job.CompoundJob()
		freeCores, freeRAM := rj.pool.Available()
		for id, a := range cj.Actions {
			if a.State != types.ActionReady || launched[id] {
				continue
			}
			cores := a.Resources.MaxCores
			if cores > freeCores {
				cores = freeCores
			}
			if cores < a.Resources.MinCores || a.Resources.MinRAMBytes > freeRAM {
				continue
			}
			freeCores -= cores
			freeRAM -= a.Resources.MinRAMBytes
			launched[id] = true

			wg.Add(1)
			go func(id types.ActionID, cores int, ram int64) {
				defer wg.Done()
				_ = action.Run(ctx, rj.job, id, rj.pool, cores, ram, action.Options{
					Clock:                 s.clock,
					Store:                 s.store,
					ThreadStartupOverhead: s.threadStartupOverhead,
				})
				select {
				case completions <- id:
				case <-ctx.Done():
				}
			}(id, cores, a.Resources.MinRAMBytes)
		}

		if rj.job.IsDone() {
			break
		}
		select {
		case <-completions:
		case <-wallAlarm:
			wallAlarm = nil
			s.wake()
		case <-ctx.Done():
			// Let in-flight actors observe cancellation and finish before
			// this goroutine stops.
			wg.Wait()
			return
		}
	}
	wg.Wait()
}
