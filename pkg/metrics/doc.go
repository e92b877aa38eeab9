/*
Package metrics provides Prometheus metrics collection and exposition for the
WRENCH execution kernel.

It registers gauges, counters, and histograms covering action execution,
the batch and serverless schedulers, VM lifecycle, host resource pools, and
the event bus, and exposes them for scraping via Handler().

# Usage

	import "github.com/wrench-sim/wrench/pkg/metrics"

	timer := metrics.NewTimer()
	// ... dispatch a job ...
	timer.ObserveDuration(metrics.BatchSchedulingLatency)
	metrics.BatchJobsDispatched.Inc()

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
