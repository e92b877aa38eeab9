// Package host implements per-host resource accounting (C3): the
// cores/RAM/scratch pools an ActionExecutionService dispatches against,
// plus a Registry that the cloud and batch schedulers look hosts up in.
// Adapted from the teacher's own node resource-pool bookkeeping in its
// scheduler package, generalized from container placement to
// action/VM dispatch.
package host
