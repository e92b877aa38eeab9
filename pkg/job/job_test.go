package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wrench-sim/wrench/pkg/types"
)

func resources() types.ResourceSpec {
	return types.ResourceSpec{MinCores: 1, MaxCores: 4, MinRAMBytes: 1 << 20}
}

func TestAddActionRejectsDuplicateName(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	_, err := j.AddAction("a", types.ActionSleep, resources(), nil)
	assert.NoError(t, err)

	_, err = j.AddAction("a", types.ActionSleep, resources(), nil)
	assert.Error(t, err)
}

func TestAddActionRejectsZeroMaxCores(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	_, err := j.AddAction("a", types.ActionSleep, types.ResourceSpec{MaxCores: 0}, nil)
	assert.Error(t, err)
}

func TestAddDependencyDetectsCycle(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	a, _ := j.AddAction("a", types.ActionSleep, resources(), nil)
	b, _ := j.AddAction("b", types.ActionSleep, resources(), nil)

	assert.NoError(t, j.AddDependency(a, b))
	err := j.AddDependency(b, a)
	assert.Error(t, err)
	_, isCycle := err.(interface{ Cause() string })
	assert.True(t, isCycle)
}

func TestSubmitReadiesParentlessActions(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	a, _ := j.AddAction("a", types.ActionSleep, resources(), nil)
	b, _ := j.AddAction("b", types.ActionSleep, resources(), nil)
	assert.NoError(t, j.AddDependency(a, b))

	j.Submit(time.Unix(0, 0))

	cj := j.CompoundJob()
	assert.Equal(t, types.JobSubmitted, cj.State)
	assert.Equal(t, types.ActionReady, cj.Actions[a].State)
	assert.Equal(t, types.ActionNotReady, cj.Actions[b].State)
}

func TestTransitionActionPropagatesReadinessAndJobState(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	a, _ := j.AddAction("a", types.ActionSleep, resources(), nil)
	b, _ := j.AddAction("b", types.ActionSleep, resources(), nil)
	assert.NoError(t, j.AddDependency(a, b))
	j.Submit(time.Unix(0, 0))

	assert.NoError(t, j.TransitionAction(a, types.ActionCompleted, &types.ActionExecution{}))
	cj := j.CompoundJob()
	assert.Equal(t, types.ActionReady, cj.Actions[b].State)
	assert.Equal(t, types.JobSubmitted, cj.State)

	assert.NoError(t, j.TransitionAction(b, types.ActionCompleted, &types.ActionExecution{}))
	assert.Equal(t, types.JobCompleted, j.CompoundJob().State)
	assert.True(t, j.IsDone())
}

func TestTransitionActionFailureKillsBlockedDependentAndFailsJob(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	a, _ := j.AddAction("a", types.ActionSleep, resources(), nil)
	b, _ := j.AddAction("b", types.ActionSleep, resources(), nil)
	assert.NoError(t, j.AddDependency(a, b))
	j.Submit(time.Unix(0, 0))

	assert.NoError(t, j.TransitionAction(a, types.ActionFailed, &types.ActionExecution{}))

	cj := j.CompoundJob()
	assert.Equal(t, types.ActionFailed, cj.Actions[a].State)
	assert.Equal(t, types.ActionKilled, cj.Actions[b].State, "b can never reach Ready now that a failed instead of completing")
	assert.Equal(t, types.JobFailed, cj.State)
	assert.True(t, j.IsDone())
}

func TestTerminateRejectsAlreadyTerminated(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	j.Submit(time.Unix(0, 0))
	assert.NoError(t, j.Terminate())
	assert.Error(t, j.Terminate())
}

func TestAddDependencyRejectsUnknownAction(t *testing.T) {
	j := New("job-1", "submitter-1", 1.0, time.Unix(0, 0))
	a, _ := j.AddAction("a", types.ActionSleep, resources(), nil)
	err := j.AddDependency(a, types.ActionID(999))
	assert.Error(t, err)
}
