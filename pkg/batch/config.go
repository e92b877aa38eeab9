package batch

// SchedulingAlgorithm selects how the queue is drained each tick.
type SchedulingAlgorithm string

const (
	FCFS                 SchedulingAlgorithm = "fcfs"
	Filler               SchedulingAlgorithm = "filler"
	EASYBackfill         SchedulingAlgorithm = "easy-backfill"
	ConservativeBackfill SchedulingAlgorithm = "conservative-backfill"
)

// QueueOrdering selects how pending jobs are ordered before the
// scheduling algorithm walks them.
type QueueOrdering string

const (
	OrderFCFS     QueueOrdering = "fcfs"
	OrderPriority QueueOrdering = "priority"
)

// HostSelection selects which hosts a dispatched job is placed on.
type HostSelection string

const (
	FirstFit   HostSelection = "FIRSTFIT"
	BestFit    HostSelection = "BESTFIT"
	RoundRobin HostSelection = "ROUNDROBIN"
)

// Config holds the scheduler's three algorithm knobs, read once at
// construction from pkg/config.
type Config struct {
	SchedulingAlgorithm SchedulingAlgorithm
	QueueOrdering       QueueOrdering
	HostSelection       HostSelection
}
