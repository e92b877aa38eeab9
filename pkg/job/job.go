// Package job holds the mutation logic and per-job locking that
// pkg/types deliberately does not: types.CompoundJob and types.Action
// stay pure data so they can be read, copied, or walked freely, while
// Job is the single capability type allowed to add actions, wire
// dependencies, and advance state. Every batch/serverless/cloud
// scheduler mutates a CompoundJob only through its Job wrapper.
package job

import (
	"sync"
	"time"

	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/types"
)

// Job wraps a *types.CompoundJob with the mutex and arena bookkeeping
// that make concurrent AddAction/AddDependency/TransitionAction calls safe.
type Job struct {
	mu     sync.Mutex
	cj     *types.CompoundJob
	nextID types.ActionID
}

// New creates an empty, not-yet-submitted CompoundJob owned by
// submitter.
func New(id, submitter string, priority float64, now time.Time) *Job {
	return &Job{
		cj: &types.CompoundJob{
			ID:        id,
			Submitter: submitter,
			State:     types.JobNotSubmitted,
			Priority:  priority,
			Actions:   make(map[types.ActionID]*types.Action),
			NameToID:  make(map[string]types.ActionID),
			CreatedAt: now,
		},
	}
}

// CompoundJob returns the underlying data struct for read-only use
// (scheduler bookkeeping, event payloads, snapshots for a UI or CLI
// listing). Callers must not mutate fields directly; go through Job's
// methods instead.
func (j *Job) CompoundJob() *types.CompoundJob {
	return j.cj
}

// AddAction allocates a new ActionID, registers the action in the
// arena, and sets its initial state to NotReady (readiness is derived
// once dependencies are known). name must be unique within the job.
func (j *Job) AddAction(name string, kind types.ActionKind, resources types.ResourceSpec, args map[string]string) (types.ActionID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.cj.NameToID[name]; exists {
		return 0, &failure.InvalidArgument{Field: "name", Reason: "action name already used in this job"}
	}
	if resources.MaxCores <= 0 {
		return 0, &failure.InvalidArgument{Field: "resources.MaxCores", Reason: "must be positive"}
	}
	if resources.MinCores <= 0 {
		resources.MinCores = 1
	}
	if resources.MinCores > resources.MaxCores {
		return 0, &failure.InvalidArgument{Field: "resources.MinCores", Reason: "exceeds MaxCores"}
	}

	j.nextID++
	id := j.nextID
	action := &types.Action{
		ID:        id,
		Name:      name,
		Kind:      kind,
		JobID:     j.cj.ID,
		Parents:   make(map[types.ActionID]struct{}),
		Children:  make(map[types.ActionID]struct{}),
		Resources: resources,
		Args:      args,
		State:     types.ActionNotReady,
	}
	j.cj.Actions[id] = action
	j.cj.NameToID[name] = id
	return id, nil
}

// AddDependency records that child must not start until parent
// completes. It rejects cross-job references and edges that would
// introduce a cycle in the action DAG.
func (j *Job) AddDependency(parent, child types.ActionID) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	p, ok := j.cj.Actions[parent]
	if !ok {
		return &failure.InvalidArgument{Field: "parent", Reason: "unknown action id"}
	}
	c, ok := j.cj.Actions[child]
	if !ok {
		return &failure.InvalidArgument{Field: "child", Reason: "unknown action id"}
	}
	if p.JobID != c.JobID {
		return &failure.CrossJob{From: p.Name, To: c.Name}
	}
	if j.reachableLocked(child, parent) {
		return &failure.CycleDetected{From: p.Name, To: c.Name}
	}

	p.Children[child] = struct{}{}
	c.Parents[parent] = struct{}{}
	return nil
}

// reachableLocked reports whether to is reachable from (forward edges
// out of) from, i.e. whether adding from->to's inverse would cycle.
// Must be called with j.mu held.
func (j *Job) reachableLocked(from, to types.ActionID) bool {
	if from == to {
		return true
	}
	visited := map[types.ActionID]bool{from: true}
	stack := []types.ActionID{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		action, ok := j.cj.Actions[cur]
		if !ok {
			continue
		}
		for next := range action.Children {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// RecomputeReadiness flips every NotReady action whose parents have
// all Completed to Ready. Called after any action reaches Completed.
func (j *Job) RecomputeReadiness() []types.ActionID {
	j.mu.Lock()
	defer j.mu.Unlock()

	var newlyReady []types.ActionID
	for id, a := range j.cj.Actions {
		if a.State != types.ActionNotReady {
			continue
		}
		ready := true
		for parent := range a.Parents {
			if pa, ok := j.cj.Actions[parent]; !ok || pa.State != types.ActionCompleted {
				ready = false
				break
			}
		}
		if ready {
			a.State = types.ActionReady
			newlyReady = append(newlyReady, id)
		}
	}
	return newlyReady
}

// TransitionAction moves an action to a new state and, for a terminal
// transition, appends the execution record and recomputes readiness
// for its children.
func (j *Job) TransitionAction(id types.ActionID, state types.ActionState, exec *types.ActionExecution) error {
	j.mu.Lock()
	a, ok := j.cj.Actions[id]
	if !ok {
		j.mu.Unlock()
		return &failure.InvalidArgument{Field: "id", Reason: "unknown action id"}
	}
	a.State = state
	if exec != nil {
		exec.FinalState = state
		a.History = append(a.History, *exec)
	}
	j.mu.Unlock()

	if state == types.ActionCompleted {
		j.RecomputeReadiness()
	}
	j.updateJobStateFromActions()
	return nil
}

// updateJobStateFromActions derives the job-level state from its
// actions: Completed once every action is Completed; Failed once every
// action is terminal and at least one is Failed or Killed. While any
// action is unfinished the job keeps its state (the owning scheduler
// is responsible for cancelling the rest). Before
// checking for completeness it kills every action that can no longer
// reach Ready, so a failure upstream in the DAG resolves the job
// instead of parking it on a dependent that will never be scheduled.
func (j *Job) updateJobStateFromActions() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cj.State != types.JobRunning && j.cj.State != types.JobSubmitted {
		return
	}

	j.killBlockedLocked()

	allDone := true
	anyFailed := false
	for _, a := range j.cj.Actions {
		if !a.State.IsTerminal() {
			allDone = false
		}
		if a.State == types.ActionFailed || a.State == types.ActionKilled {
			anyFailed = true
		}
	}
	switch {
	case anyFailed && allDone:
		j.cj.State = types.JobFailed
	case allDone:
		j.cj.State = types.JobCompleted
	}
}

// killBlockedLocked marks NotReady actions Killed once a parent has
// gone terminal without Completing — RecomputeReadiness will never
// promote them, since it requires every parent to reach Completed.
// Runs to a fixpoint so a failure propagates through a dependency
// chain of any length in one pass. Must be called with j.mu held.
func (j *Job) killBlockedLocked() {
	for changed := true; changed; {
		changed = false
		for _, a := range j.cj.Actions {
			if a.State != types.ActionNotReady {
				continue
			}
			for parent := range a.Parents {
				pa, ok := j.cj.Actions[parent]
				if !ok {
					continue
				}
				if pa.State.IsTerminal() && pa.State != types.ActionCompleted {
					a.State = types.ActionKilled
					changed = true
					break
				}
			}
		}
	}
}

// Submit marks the job Submitted and makes every parent-less action
// Ready.
func (j *Job) Submit(now time.Time) {
	j.mu.Lock()
	j.cj.State = types.JobSubmitted
	for _, a := range j.cj.Actions {
		if len(a.Parents) == 0 {
			a.State = types.ActionReady
		}
	}
	j.mu.Unlock()
}

// Terminate marks every non-terminal action Killed and the job
// Discontinued. It rejects an already-terminated job.
func (j *Job) Terminate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cj.State == types.JobCompleted || j.cj.State == types.JobFailed || j.cj.State == types.JobDiscontinued {
		return &failure.NotAllowedTerminated{JobID: j.cj.ID}
	}
	j.cj.State = types.JobDiscontinued
	for _, a := range j.cj.Actions {
		if !a.State.IsTerminal() {
			a.State = types.ActionKilled
		}
	}
	return nil
}

// IsDone reports whether the job has reached any terminal state.
func (j *Job) IsDone() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.cj.State {
	case types.JobCompleted, types.JobFailed, types.JobDiscontinued:
		return true
	default:
		return false
	}
}
