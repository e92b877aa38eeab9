package serverless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wrench-sim/wrench/pkg/adapter"
	"github.com/wrench-sim/wrench/pkg/events"
	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/log"
	"github.com/wrench-sim/wrench/pkg/metrics"
	"github.com/wrench-sim/wrench/pkg/simclock"
	"github.com/wrench-sim/wrench/pkg/storage"
	"github.com/wrench-sim/wrench/pkg/types"
)

// Config bundles the ServerlessScheduler's cache sizing and simulated
// transfer rates. Every rate is bytes/sec.
type Config struct {
	HeadDiskCapacityBytes int64
	NodeDiskCacheBytes    int64
	NodeRAMCacheBytes     int64
	DownloadRate          float64 // remote origin -> head disk
	CopyRate              float64 // head disk -> node disk
	LoadRate              float64 // node disk -> node RAM
}

// nodeState is one compute node's cache tiers, core accounting, and
// in-flight-transfer tracking sets.
type nodeState struct {
	coresFree   int
	disk        *imageStore
	ram         *imageStore
	beingCopied map[string]bool
	beingLoaded map[string]bool
}

// Scheduler is the ServerlessScheduler (§4.5): function registration,
// invocation admission, the three-tier image cache, and the
// adapter-driven control loop.
type Scheduler struct {
	cfg      Config
	registry *host.Registry
	clock    simclock.Clock
	store    *storage.Store
	broker   *events.Broker
	adapter  adapter.SchedulerAdapter
	logger   zerolog.Logger

	mu             sync.Mutex
	functions      map[string]*types.RegisteredFunction
	newInvocations []*types.Invocation
	admitted       map[string][]*types.Invocation // image -> invocations waiting on its download
	downloading    map[string]bool                // image currently downloading to head
	headImages     map[string]int64 // image -> bytes present on head disk (after download completes)
	headFree       int64
	schedulable    []*types.Invocation
	running        map[string]*types.Invocation
	nodes          map[string]*nodeState

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan completion
}

// completion is the single channel every asynchronous operation
// (download, copy, load, invocation execution) reports back on, so
// the control loop only ever mutates state from one goroutine.
type completion struct {
	kind  completionKind
	image string
	host  string
	inv   *types.Invocation
	err   error
}

type completionKind int

const (
	completionDownload completionKind = iota
	completionCopy
	completionLoad
	completionInvocation
)

// NewScheduler creates a ServerlessScheduler over registry's compute
// nodes. adapter decides placement each tick; pass a
// pkg/adapter.NativeAdapter for the built-in FCFS/LRU policy.
func NewScheduler(cfg Config, registry *host.Registry, clock simclock.Clock, store *storage.Store, broker *events.Broker, sa adapter.SchedulerAdapter) *Scheduler {
	s := &Scheduler{
		cfg:         cfg,
		registry:    registry,
		clock:       clock,
		store:       store,
		broker:      broker,
		adapter:     sa,
		logger:      log.WithComponent("serverless_scheduler"),
		functions:   make(map[string]*types.RegisteredFunction),
		admitted:    make(map[string][]*types.Invocation),
		downloading: make(map[string]bool),
		headImages:  make(map[string]int64),
		headFree:    cfg.HeadDiskCapacityBytes,
		running:     make(map[string]*types.Invocation),
		nodes:       make(map[string]*nodeState),
		wakeCh:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan completion, 256),
	}
	for _, p := range registry.Ordered() {
		cores, _ := p.Available()
		s.nodes[p.Name()] = &nodeState{
			coresFree:   cores,
			disk:        newImageStore(cfg.NodeDiskCacheBytes),
			ram:         newImageStore(cfg.NodeRAMCacheBytes),
			beingCopied: make(map[string]bool),
			beingLoaded: make(map[string]bool),
		}
	}
	return s
}

// Start begins the control loop.
func (s *Scheduler) Start() { go s.run() }

// Stop halts the control loop. In-flight transfers and invocations
// finish running but their completions are no longer processed.
func (s *Scheduler) Stop() { close(s.stopCh) }

func (s *Scheduler) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		case <-s.wakeCh:
			s.tick()
		case c := <-s.doneCh:
			s.applyCompletion(c)
			s.tick()
		}
	}
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// RegisterFunction admits fn into the registry, rejecting it with
// NotAllowed if no compute host could ever run it (image+disk or RAM
// limit exceeds every host's capacity).
func (s *Scheduler) RegisterFunction(fn *types.RegisteredFunction) error {
	fits := false
	for _, p := range s.registry.Ordered() {
		spec := p.Spec()
		disk := spec.Disks["default"]
		if fn.ImageSizeBytes+fn.DiskSpaceLimitBytes <= disk && fn.RAMLimitBytes <= spec.RAMBytes {
			fits = true
			break
		}
	}
	if !fits {
		return &failure.NotAllowed{Service: "serverless_scheduler", Reason: fmt.Sprintf("function %s cannot fit on any compute host", fn.Name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[fn.ID] = fn
	return nil
}

// Invoke appends an Invocation of a registered function to the
// admission queue, returning FunctionNotFound if fn isn't registered.
func (s *Scheduler) Invoke(functionID string, input []byte) (*types.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, ok := s.functions[functionID]
	if !ok {
		return nil, &failure.FunctionNotFound{Registered: functionID}
	}

	inv := &types.Invocation{
		ID:         fmt.Sprintf("%s-%d", functionID, len(s.newInvocations)+len(s.running)+1),
		Function:   fn,
		Input:      input,
		SubmitDate: s.clock.Now(),
		State:      types.InvocationNew,
	}
	s.newInvocations = append(s.newInvocations, inv)
	s.wake()
	return inv, nil
}

// tick runs one control-loop pass: admit, invoke the adapter, dispatch
// its placement, and kick off any async transfers it implies.
func (s *Scheduler) tick() {
	s.mu.Lock()
	s.admitLocked()
	view, invByID := s.schedulableViewLocked()
	state := s.systemStateLocked()
	s.mu.Unlock()

	if len(view) == 0 {
		return
	}

	placement, err := s.adapter.Schedule(context.Background(), view, state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("adapter schedule call failed, skipping this tick")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchLocked(placement, invByID)
}

// admitLocked walks new_invocations FCFS, moving each to schedulable
// if its image is already on head storage, parking it behind an
// in-flight download if one is running, or starting a new download if
// head storage has room. Stops the first time none of those apply.
func (s *Scheduler) admitLocked() {
	i := 0
	for i < len(s.newInvocations) {
		inv := s.newInvocations[i]
		image := inv.Function.ImageID

		switch {
		case s.headImages[image] > 0:
			inv.State = types.InvocationSchedulable
			s.schedulable = append(s.schedulable, inv)
		case s.downloading[image]:
			s.admitted[image] = append(s.admitted[image], inv)
			inv.State = types.InvocationAdmitted
		case s.headFree >= inv.Function.ImageSizeBytes:
			s.headFree -= inv.Function.ImageSizeBytes
			s.downloading[image] = true
			s.admitted[image] = append(s.admitted[image], inv)
			inv.State = types.InvocationAdmitted
			s.startDownload(image, inv.Function.ImageSizeBytes)
		default:
			return // no head space this cycle
		}
		i++
	}
	s.newInvocations = s.newInvocations[i:]
}

func (s *Scheduler) startDownload(image string, size int64) {
	d := transferDuration(size, s.cfg.DownloadRate)
	go func() {
		if err := sleepCtx(context.Background(), s.clock, d); err != nil {
			return
		}
		select {
		case s.doneCh <- completion{kind: completionDownload, image: image}:
		case <-s.stopCh:
		}
	}()
}

// schedulableViewLocked converts the schedulable queue and node state
// into the adapter's read-only view types.
func (s *Scheduler) schedulableViewLocked() ([]adapter.InvocationView, map[string]*types.Invocation) {
	view := make([]adapter.InvocationView, 0, len(s.schedulable))
	byID := make(map[string]*types.Invocation, len(s.schedulable))
	for _, inv := range s.schedulable {
		view = append(view, adapter.InvocationView{
			ID:             inv.ID,
			FunctionID:     inv.Function.ID,
			ImageID:        inv.Function.ImageID,
			ImageSizeBytes: inv.Function.ImageSizeBytes,
			RAMLimitBytes:  inv.Function.RAMLimitBytes,
		})
		byID[inv.ID] = inv
	}
	return view, byID
}

func (s *Scheduler) systemStateLocked() adapter.SystemState {
	hosts := make([]adapter.HostView, 0, len(s.nodes))
	for _, p := range s.registry.Ordered() {
		n := s.nodes[p.Name()]
		inRAM := make(map[string]bool)
		onDisk := make(map[string]bool)
		for _, img := range n.ram.lru.Keys() {
			inRAM[img.(string)] = true
		}
		for _, img := range n.disk.lru.Keys() {
			onDisk[img.(string)] = true
		}
		hosts = append(hosts, adapter.HostView{
			Name:        p.Name(),
			CoresFree:   n.coresFree,
			ImageInRAM:  inRAM,
			ImageOnDisk: onDisk,
		})
	}
	return adapter.SystemState{Hosts: hosts}
}

// dispatchLocked applies one Placement: starts async copies/loads the
// adapter asked for (suppressing duplicates via being_copied/
// being_loaded), then attempts to start every requested invocation in
// order, rolling back cleanly on partial failure.
func (s *Scheduler) dispatchLocked(p adapter.Placement, invByID map[string]*types.Invocation) {
	for host, images := range p.Copy {
		n := s.nodes[host]
		if n == nil {
			continue
		}
		for _, img := range images {
			if n.beingCopied[img] {
				continue
			}
			n.beingCopied[img] = true
			s.startCopy(host, img, s.headImages[img])
		}
	}
	for host, images := range p.Load {
		n := s.nodes[host]
		if n == nil {
			continue
		}
		for _, img := range images {
			if n.beingLoaded[img] {
				continue
			}
			n.beingLoaded[img] = true
			s.startLoad(host, img)
		}
	}

	for host, invIDs := range p.Start {
		n := s.nodes[host]
		if n == nil {
			continue
		}
		for _, id := range invIDs {
			inv := invByID[id]
			if inv == nil {
				continue
			}
			s.startInvocationLocked(host, n, inv)
		}
	}
}

// startInvocationLocked attempts to dispatch inv onto host per §4.5
// step 3: image in RAM, a free core, a private sandbox, and a pinned
// RAM handle, rolling back anything already reserved on failure.
func (s *Scheduler) startInvocationLocked(hostName string, n *nodeState, inv *types.Invocation) {
	if !n.ram.Has(inv.Function.ImageID) {
		return
	}
	if n.coresFree < 1 {
		return
	}
	pool := s.registry.Get(hostName)
	sandboxPath := fmt.Sprintf("sandbox/%s/%s", hostName, inv.ID)
	if pool != nil {
		if err := pool.ReserveScratch("default", inv.ID, inv.Function.DiskSpaceLimitBytes); err != nil {
			return
		}
	}

	n.ram.Pin(inv.Function.ImageID)
	n.coresFree--
	s.store.Write(sandboxPath, inv.Function.DiskSpaceLimitBytes)

	inv.TargetHost = hostName
	inv.SandboxPath = sandboxPath
	inv.ImagePinned = true
	inv.StartDate = s.clock.Now()
	inv.State = types.InvocationRunning

	s.removeSchedulableLocked(inv.ID)
	s.running[inv.ID] = inv

	s.runInvocation(inv)
}

func (s *Scheduler) removeSchedulableLocked(id string) {
	for i, inv := range s.schedulable {
		if inv.ID == id {
			s.schedulable = append(s.schedulable[:i], s.schedulable[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) runInvocation(inv *types.Invocation) {
	go func() {
		var err error
		if inv.Function.Fn != nil {
			inv.Output, err = inv.Function.Fn(inv.Input)
		} else {
			err = sleepCtx(context.Background(), s.clock, inv.Function.TimeLimit)
		}
		select {
		case s.doneCh <- completion{kind: completionInvocation, inv: inv, err: err}:
		case <-s.stopCh:
		}
	}()
}

func (s *Scheduler) startCopy(hostName, image string, size int64) {
	d := transferDuration(size, s.cfg.CopyRate)
	go func() {
		err := sleepCtx(context.Background(), s.clock, d)
		select {
		case s.doneCh <- completion{kind: completionCopy, host: hostName, image: image, err: err}:
		case <-s.stopCh:
		}
	}()
}

func (s *Scheduler) startLoad(hostName, image string) {
	n := s.nodes[hostName]
	var size int64
	if n != nil {
		if e, ok := n.disk.lru.Get(image); ok {
			size = e.(cacheEntry).size
		}
	}
	d := transferDuration(size, s.cfg.LoadRate)
	go func() {
		err := sleepCtx(context.Background(), s.clock, d)
		select {
		case s.doneCh <- completion{kind: completionLoad, host: hostName, image: image, err: err}:
		case <-s.stopCh:
		}
	}()
}

// applyCompletion folds one asynchronous completion into state.
// Called with s.mu unlocked by run(); it takes the lock itself since
// it is the only caller outside tick()'s already-locked section.
func (s *Scheduler) applyCompletion(c completion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.kind {
	case completionDownload:
		delete(s.downloading, c.image)
		s.headImages[c.image] = s.imageSizeOf(c.image) // bytes already reserved out of headFree at admission
		for _, inv := range s.admitted[c.image] {
			inv.State = types.InvocationSchedulable
			s.schedulable = append(s.schedulable, inv)
		}
		delete(s.admitted, c.image)

	case completionCopy:
		n := s.nodes[c.host]
		if n == nil {
			return
		}
		delete(n.beingCopied, c.image)
		if c.err != nil {
			return // next tick reconsiders, no retry within this tick
		}
		n.disk.Insert(c.image, s.imageSizeOf(c.image))

	case completionLoad:
		n := s.nodes[c.host]
		if n == nil {
			return
		}
		delete(n.beingLoaded, c.image)
		if c.err != nil {
			return
		}
		n.ram.Insert(c.image, s.imageSizeOf(c.image))

	case completionInvocation:
		s.completeInvocationLocked(c.inv, c.err)
	}
}

func (s *Scheduler) imageSizeOf(image string) int64 {
	for _, fn := range s.functions {
		if fn.ImageID == image {
			return fn.ImageSizeBytes
		}
	}
	return 0
}

// completeInvocationLocked closes pinned handles, deletes the
// sandbox, returns the core, and publishes FunctionInvocationComplete
// exactly once per invocation.
func (s *Scheduler) completeInvocationLocked(inv *types.Invocation, cause error) {
	n := s.nodes[inv.TargetHost]
	if n != nil {
		if inv.ImagePinned {
			n.ram.Unpin(inv.Function.ImageID)
		}
		n.coresFree++
	}
	if pool := s.registry.Get(inv.TargetHost); pool != nil {
		pool.ReleaseScratch(inv.ID)
	}
	if inv.SandboxPath != "" {
		_ = s.store.Delete(inv.SandboxPath)
	}

	inv.EndDate = s.clock.Now()
	inv.FailureCause = cause
	if cause != nil {
		inv.State = types.InvocationFailed
		metrics.ServerlessInvocationsTotal.WithLabelValues("failure").Inc()
	} else {
		inv.State = types.InvocationCompleted
		metrics.ServerlessInvocationsTotal.WithLabelValues("success").Inc()
	}
	delete(s.running, inv.ID)

	s.broker.Publish(&types.Event{
		Kind:         types.EventFunctionInvocationComplete,
		InvocationID: inv.ID,
		Cause:        cause,
		Date:         inv.EndDate,
		Success:      cause == nil,
	})
}
