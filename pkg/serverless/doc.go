/*
Package serverless implements the ServerlessScheduler (§4.5): a
registered-function store, invocation admission, and the three-tier
image cache that mirrors a real FaaS cold-start path — remote origin
to head-node disk, head-node disk to compute-node disk, compute-node
disk to compute-node RAM. The node-disk and node-RAM tiers are backed
by hashicorp/golang-lru's simplelru.LRU, with an eviction callback
that refuses to evict a pinned (currently in-use) entry by
re-inserting it, which naturally pushes eviction pressure onto the
next-least-recently-used entry instead.

Placement decisions are delegated to a pkg/adapter.SchedulerAdapter on
every control-loop tick, so the built-in FCFS/LRU policy and any
external decision-maker share one boundary.
*/
package serverless
