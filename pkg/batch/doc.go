/*
Package batch implements the BatchScheduler (§4.4): submit/terminate
of BatchJobs, the fcfs/filler/easy-backfill/conservative-backfill
scheduling algorithms, fcfs/priority queue orderings, and the
FIRSTFIT/BESTFIT/ROUNDROBIN host-selection algorithms.

Structured the way the teacher structures its own scheduler: a single
background goroutine (Start/run/Stop) woken by a ticker, guarded by one
mutex, logging through zerolog and reporting through pkg/metrics.
*/
package batch
