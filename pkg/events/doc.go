/*
Package events implements WRENCH's event bus (§4.7): an in-memory,
non-blocking publish/subscribe broker that delivers typed types.Event
values to submitter controllers. A submitted CompoundJob or Invocation
produces at most one terminal event on the bus; a batch job that is
terminated while still pending produces none. Schedulers never let a
submitter read their internal state directly.

Adapted from the teacher's own cluster-event broker: a single
broadcast goroutine, a buffered publish channel, and per-subscriber
buffered channels that drop rather than block a slow subscriber.
*/
package events
