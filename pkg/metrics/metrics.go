package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Action metrics
	ActionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_actions_started_total",
			Help: "Total number of actions started, by kind",
		},
		[]string{"kind"},
	)

	ActionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_actions_completed_total",
			Help: "Total number of actions that reached a terminal state, by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: completed, failed, killed
	)

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wrench_action_duration_seconds",
			Help:    "Simulated wall-clock duration of an action, by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// BatchScheduler metrics
	BatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wrench_batch_queue_depth",
			Help: "Number of BatchJobs currently pending admission",
		},
	)

	BatchJobsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wrench_batch_jobs_dispatched_total",
			Help: "Total number of BatchJobs dispatched to hosts",
		},
	)

	BatchJobsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_batch_jobs_rejected_total",
			Help: "Total number of BatchJobs rejected at submission, by cause",
		},
		[]string{"cause"},
	)

	BatchSchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wrench_batch_scheduling_latency_seconds",
			Help:    "Wall-clock time spent in one batch dispatch call",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ServerlessScheduler metrics
	ServerlessInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_serverless_invocations_total",
			Help: "Total number of function invocations, by outcome",
		},
		[]string{"outcome"}, // success, failure
	)

	ServerlessCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_serverless_cache_hits_total",
			Help: "Image cache hits by tier (head, node_disk, node_ram)",
		},
		[]string{"tier"},
	)

	ServerlessCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_serverless_cache_misses_total",
			Help: "Image cache misses by tier (head, node_disk, node_ram)",
		},
		[]string{"tier"},
	)

	ServerlessColdStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wrench_serverless_cold_starts_total",
			Help: "Total number of invocations that required an image download",
		},
	)

	// CloudVMManager metrics
	VMsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wrench_vms_running",
			Help: "Number of VMs currently in the Running state",
		},
	)

	VMMigrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_vm_migrations_total",
			Help: "Total number of VM migrations, by outcome",
		},
		[]string{"outcome"},
	)

	// Host resource metrics
	HostCoresFree = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrench_host_cores_free",
			Help: "Free cores on a host",
		},
		[]string{"host"},
	)

	HostRAMFreeBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrench_host_ram_free_bytes",
			Help: "Free RAM bytes on a host",
		},
		[]string{"host"},
	)

	// Event bus metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrench_events_published_total",
			Help: "Total number of events published on the bus, by event kind",
		},
		[]string{"kind"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wrench_events_dropped_total",
			Help: "Total number of events dropped because a subscriber buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(ActionsStarted)
	prometheus.MustRegister(ActionsCompleted)
	prometheus.MustRegister(ActionDuration)

	prometheus.MustRegister(BatchQueueDepth)
	prometheus.MustRegister(BatchJobsDispatched)
	prometheus.MustRegister(BatchJobsRejected)
	prometheus.MustRegister(BatchSchedulingLatency)

	prometheus.MustRegister(ServerlessInvocationsTotal)
	prometheus.MustRegister(ServerlessCacheHits)
	prometheus.MustRegister(ServerlessCacheMisses)
	prometheus.MustRegister(ServerlessColdStarts)

	prometheus.MustRegister(VMsRunning)
	prometheus.MustRegister(VMMigrations)

	prometheus.MustRegister(HostCoresFree)
	prometheus.MustRegister(HostRAMFreeBytes)

	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsDropped)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations and recording them to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
