package main

import (
	"testing"

	"github.com/wrench-sim/wrench/pkg/config"
	"github.com/wrench-sim/wrench/pkg/types"
)

func TestScenarioS1SingleStandardJob(t *testing.T) {
	got, err := scenarioS1(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS1: %v", err)
	}
	found := false
	for _, e := range got {
		if e.Kind == types.EventStandardJobCompleted && e.JobID == "job-1" {
			found = true
		}
		if e.Cause != nil {
			t.Fatalf("unexpected failure event: %+v", e)
		}
	}
	if !found {
		t.Fatalf("expected a StandardJobCompleted for job-1, got %+v", got)
	}
}

func TestScenarioS2TerminatesQueuedAndRunning(t *testing.T) {
	got, err := scenarioS2(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS2: %v", err)
	}
	kinds := map[string]types.EventKind{}
	for _, e := range got {
		kinds[e.JobID] = e.Kind
	}
	if kinds["job-1"] != types.EventStandardJobFailed {
		t.Errorf("job-1 (running, terminated): want StandardJobFailed, got %v", kinds["job-1"])
	}
	if k, ok := kinds["job-2"]; ok {
		t.Errorf("job-2 (queued, terminated silently): want no event, got %v", k)
	}
	if kinds["job-3"] != types.EventStandardJobCompleted {
		t.Errorf("job-3 (allowed to run): want StandardJobCompleted, got %v", kinds["job-3"])
	}
}

func TestScenarioS3PilotHostsAndLosesNestedJob(t *testing.T) {
	got, err := scenarioS3(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS3: %v", err)
	}
	var sawPilotStarted, sawInnerFailed, sawPilotExpired bool
	for _, e := range got {
		switch {
		case e.Kind == types.EventPilotJobStarted && e.JobID == "pilot-1":
			sawPilotStarted = true
		case e.Kind == types.EventStandardJobFailed && e.JobID == "inner-1":
			sawInnerFailed = true
		case e.Kind == types.EventPilotJobExpired && e.JobID == "pilot-1":
			sawPilotExpired = true
		}
	}
	if !sawPilotStarted {
		t.Errorf("expected PilotJobStarted for pilot-1, got %+v", got)
	}
	if !sawInnerFailed {
		t.Errorf("expected inner-1 to fail when its host pilot is terminated, got %+v", got)
	}
	if !sawPilotExpired {
		t.Errorf("expected pilot-1 to terminate with PilotJobExpired, got %+v", got)
	}
}

func TestScenarioS4ColdStartThenWarmInvocations(t *testing.T) {
	got, err := scenarioS4(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS4: %v", err)
	}
	count := 0
	for _, e := range got {
		if e.Kind == types.EventFunctionInvocationComplete {
			count++
			if !e.Success {
				t.Errorf("invocation %d failed unexpectedly: cause=%v", count, e.Cause)
			}
		}
	}
	if count != 3 {
		t.Fatalf("want 3 FunctionInvocationComplete events, got %d (%+v)", count, got)
	}
}

func TestScenarioS5VMMigratesUnderRunningAction(t *testing.T) {
	got, err := scenarioS5(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS5: %v", err)
	}
	if len(got) != 1 || got[0].Kind != types.EventStandardJobCompleted {
		t.Fatalf("want a single StandardJobCompleted event, got %+v", got)
	}
}

func TestScenarioS6WallTimeKillsOverrunningJob(t *testing.T) {
	got, err := scenarioS6(config.Defaults())
	if err != nil {
		t.Fatalf("scenarioS6: %v", err)
	}
	found := false
	for _, e := range got {
		if e.JobID == "job-1" {
			found = true
			if e.Kind != types.EventStandardJobFailed {
				t.Errorf("want StandardJobFailed for wall-time overrun, got %v", e.Kind)
			}
		}
	}
	if !found {
		t.Fatalf("expected a terminal event for job-1, got %+v", got)
	}
}
