/*
Package types defines WRENCH's core domain model: Action, CompoundJob,
BatchJob, RegisteredFunction, Invocation, VirtualMachine, ExecutionHost,
and the Event taxonomy published by pkg/events.

These types are data only — no scheduling policy lives here. The state
machines they describe (Action and CompoundJob lifecycle) are enforced
by pkg/job; resource bookkeeping is enforced by pkg/host.
*/
package types
