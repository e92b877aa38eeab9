// Package failure defines WRENCH's FailureCause taxonomy as plain Go
// error values instead of exceptions. Admission errors are returned
// synchronously from a submit call; runtime errors are wrapped with
// fmt.Errorf("...: %w", cause) as they propagate and eventually attach
// to an ActionExecution record or an Event.
package failure

import "fmt"

// Cause is implemented by every FailureCause value so callers can
// branch on the taxonomy without string matching or a type switch on
// every concrete type.
type Cause interface {
	error
	// Cause returns a short, stable tag for the failure kind, e.g.
	// "not_enough_resources" or "job_timeout".
	Cause() string
}

// NotEnoughResources is returned when a job or action requests more
// cores/RAM/nodes than a service can ever provide.
type NotEnoughResources struct {
	JobID   string
	Service string
}

func (e *NotEnoughResources) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("not enough resources for job %s on service %s", e.JobID, e.Service)
	}
	return fmt.Sprintf("not enough resources on service %s", e.Service)
}
func (e *NotEnoughResources) Cause() string { return "not_enough_resources" }

// JobTypeNotSupported is returned when a job's kind does not match the
// service it was submitted to.
type JobTypeNotSupported struct {
	JobID   string
	Service string
}

func (e *JobTypeNotSupported) Error() string {
	return fmt.Sprintf("job %s type not supported by service %s", e.JobID, e.Service)
}
func (e *JobTypeNotSupported) Cause() string { return "job_type_not_supported" }

// JobKilled is attached when a job or its actions were terminated by
// an explicit kill signal (submitter termination, service shutdown).
type JobKilled struct {
	JobID string
}

func (e *JobKilled) Error() string       { return fmt.Sprintf("job %s killed", e.JobID) }
func (e *JobKilled) Cause() string       { return "job_killed" }

// JobTimeout is attached when a BatchJob's wall-deadline fires before
// it completed.
type JobTimeout struct {
	JobID string
}

func (e *JobTimeout) Error() string { return fmt.Sprintf("job %s timed out", e.JobID) }
func (e *JobTimeout) Cause() string { return "job_timeout" }

// ServiceIsDown is returned when a dispatch is attempted against a
// service that has been shut down.
type ServiceIsDown struct {
	Service string
}

func (e *ServiceIsDown) Error() string { return fmt.Sprintf("service %s is down", e.Service) }
func (e *ServiceIsDown) Cause() string { return "service_is_down" }

// HostError is surfaced when the host running an action or VM dies
// mid-execution.
type HostError struct {
	Host string
}

func (e *HostError) Error() string { return fmt.Sprintf("host error on %s", e.Host) }
func (e *HostError) Cause() string { return "host_error" }

// FileNotFound is propagated unchanged from the storage collaborator
// when a file-I/O action references a location that does not exist.
type FileNotFound struct {
	Location string
}

func (e *FileNotFound) Error() string { return fmt.Sprintf("file not found: %s", e.Location) }
func (e *FileNotFound) Cause() string { return "file_not_found" }

// NetworkDirection is the direction of a NetworkError.
type NetworkDirection string

const (
	NetworkSend NetworkDirection = "send"
	NetworkRecv NetworkDirection = "recv"
)

// NetworkKind is the kind of a NetworkError.
type NetworkKind string

const (
	NetworkTimeoutKind NetworkKind = "timeout"
	NetworkFailureKind NetworkKind = "failure"
)

// NetworkError is returned by the mailbox/transport collaborator.
type NetworkError struct {
	Direction NetworkDirection
	Kind      NetworkKind
	Endpoint  string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s %s on %s", e.Direction, e.Kind, e.Endpoint)
}
func (e *NetworkError) Cause() string { return "network_error" }

// FunctionNotFound is returned when an invocation targets a function
// that was never registered.
type FunctionNotFound struct {
	Registered string
}

func (e *FunctionNotFound) Error() string {
	return fmt.Sprintf("function not found: %s", e.Registered)
}
func (e *FunctionNotFound) Cause() string { return "function_not_found" }

// NotAllowed is a catch-all admission rejection carrying a
// human-readable reason, used e.g. when a function image can never fit
// on any registered compute host.
type NotAllowed struct {
	Service string
	Reason  string
}

func (e *NotAllowed) Error() string {
	return fmt.Sprintf("%s: not allowed: %s", e.Service, e.Reason)
}
func (e *NotAllowed) Cause() string { return "not_allowed" }

// InvalidArgument is returned synchronously for malformed submission
// arguments or configuration values.
type InvalidArgument struct {
	Field  string
	Reason string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}
func (e *InvalidArgument) Cause() string { return "invalid_argument" }

// CycleDetected is returned by add_dep when the new edge would create
// a cycle in the action DAG.
type CycleDetected struct {
	From, To string
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("dependency %s -> %s would create a cycle", e.From, e.To)
}
func (e *CycleDetected) Cause() string { return "cycle_detected" }

// CrossJob is returned by add_dep when the two actions belong to
// different CompoundJobs.
type CrossJob struct {
	From, To string
}

func (e *CrossJob) Error() string {
	return fmt.Sprintf("actions %s and %s belong to different jobs", e.From, e.To)
}
func (e *CrossJob) Cause() string { return "cross_job" }

// NotAllowedTerminated is returned when terminate() targets an
// already-terminated job.
type NotAllowedTerminated struct {
	JobID string
}

func (e *NotAllowedTerminated) Error() string {
	return fmt.Sprintf("job %s already terminated", e.JobID)
}
func (e *NotAllowedTerminated) Cause() string { return "not_allowed" }

// FatalFailure covers unrecoverable internal errors that do not fit
// any other tag.
type FatalFailure struct {
	Reason string
}

func (e *FatalFailure) Error() string { return fmt.Sprintf("fatal failure: %s", e.Reason) }
func (e *FatalFailure) Cause() string { return "fatal_failure" }

// ComputeThreadHasDied is surfaced when a per-thread compute actor
// (Compute action launched in actor-per-thread mode, or an MPI
// co-actor) dies before reaching its completion barrier.
type ComputeThreadHasDied struct {
	ActionName string
}

func (e *ComputeThreadHasDied) Error() string {
	return fmt.Sprintf("compute thread died running action %s", e.ActionName)
}
func (e *ComputeThreadHasDied) Cause() string { return "compute_thread_has_died" }
