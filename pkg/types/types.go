package types

import "time"

// ActionID identifies an Action within its owning CompoundJob's arena.
// Parent/child references are ids, never pointers, so a CompoundJob can
// be copied, serialized, or walked without chasing live pointers.
type ActionID int

// ActionKind tags the kind of simulated work an Action performs.
type ActionKind string

const (
	ActionCompute            ActionKind = "compute"
	ActionSleep              ActionKind = "sleep"
	ActionFileRead           ActionKind = "file_read"
	ActionFileWrite          ActionKind = "file_write"
	ActionFileCopy           ActionKind = "file_copy"
	ActionFileDelete         ActionKind = "file_delete"
	ActionFileRegistryAdd    ActionKind = "file_registry_add"
	ActionFileRegistryDelete ActionKind = "file_registry_delete"
	ActionCustom             ActionKind = "custom"
	ActionMPI                ActionKind = "mpi"
)

// ActionState is the Action lifecycle state. Legal transitions:
// NotReady -> Ready -> Started -> {Completed, Failed, Killed}.
type ActionState string

const (
	ActionNotReady  ActionState = "not_ready"
	ActionReady     ActionState = "ready"
	ActionStarted   ActionState = "started"
	ActionCompleted ActionState = "completed"
	ActionKilled    ActionState = "killed"
	ActionFailed    ActionState = "failed"
)

// IsTerminal reports whether the state is one an Action does not leave.
func (s ActionState) IsTerminal() bool {
	return s == ActionCompleted || s == ActionKilled || s == ActionFailed
}

// ResourceSpec is the resource ask attached to an Action: a [min,max]
// core range and a RAM floor, as plain integers; it embeds no
// container-runtime type, and no container is ever created from it.
type ResourceSpec struct {
	MinCores    int
	MaxCores    int
	MinRAMBytes int64
}

// ParallelModel determines how a Compute action's flops are divided
// across the cores it is allocated.
type ParallelModel interface {
	// Efficiency returns the fraction of perfectly-parallel speedup
	// retained at the given core count (1.0 = linear scaling).
	Efficiency(cores int) float64
}

// AmdahlConstEfficiency models a compute action whose parallel portion
// scales with a constant per-core efficiency loss alpha.
type AmdahlConstEfficiency struct {
	Alpha float64
}

func (a AmdahlConstEfficiency) Efficiency(cores int) float64 {
	if cores <= 1 {
		return 1.0
	}
	eff := 1.0 - a.Alpha*float64(cores-1)
	if eff < 0 {
		eff = 0
	}
	return eff
}

// CustomParallelEfficiency lets the submitter supply an arbitrary
// core-count -> efficiency function.
type CustomParallelEfficiency struct {
	F func(cores int) float64
}

func (c CustomParallelEfficiency) Efficiency(cores int) float64 {
	if c.F == nil {
		return 1.0
	}
	return c.F(cores)
}

// ComputeParams is the kind-specific payload of an ActionCompute action.
type ComputeParams struct {
	Flops         float64
	ParallelModel ParallelModel
}

// SleepParams is the kind-specific payload of an ActionSleep action.
type SleepParams struct {
	Duration time.Duration
}

// FileParams is the kind-specific payload of the file-I/O action kinds
// (FileRead, FileWrite, FileCopy, FileDelete, FileRegistryAdd/Delete).
// SourceLocation is only meaningful for FileCopy.
type FileParams struct {
	Location       string
	SourceLocation string
	Bytes          int64
}

// CustomFunc is user-supplied code invoked in place of simulated work
// for an ActionCustom action. It never touches the network or disk
// directly — it receives only the action's argument map.
type CustomFunc func(args map[string]string) error

// CustomParams is the kind-specific payload of an ActionCustom action.
type CustomParams struct {
	Fn CustomFunc
}

// MPIParams is the kind-specific payload of an ActionMPI action.
type MPIParams struct {
	NumProcesses    int
	CoresPerProcess int
	Flops           float64
}

// ActionExecution is one history record, appended together with the
// terminal transition that ends an execution (or rejects an action
// before it starts); no record is appended at the Started transition
// itself. An Action never re-executes once Completed, so Completed
// actions carry exactly one record.
type ActionExecution struct {
	StartDate       time.Time
	EndDate         time.Time
	FinalState      ActionState
	ExecutionHost   string // host running the ActionExecutionService
	PhysicalHost    string // physical host, if ExecutionHost is a VM
	CoresAllocated  int
	RAMAllocated    int64
	FailureCause    error
}

// Action is the smallest unit of simulated work. Action values are
// owned by exactly one CompoundJob's arena; pkg/job is the only
// package that mutates State, History, or the parent/child sets.
type Action struct {
	ID       ActionID
	Name     string
	Kind     ActionKind
	JobID    string // weak back-reference to the owning CompoundJob
	Parents  map[ActionID]struct{}
	Children map[ActionID]struct{}
	Priority float64
	Resources ResourceSpec
	Args     map[string]string

	Compute *ComputeParams
	Sleep   *SleepParams
	File    *FileParams
	Custom  *CustomParams
	MPI     *MPIParams

	State   ActionState
	History []ActionExecution
}

// LatestExecution returns the most recent history record, or nil if
// the action has never started.
func (a *Action) LatestExecution() *ActionExecution {
	if len(a.History) == 0 {
		return nil
	}
	return &a.History[len(a.History)-1]
}

// JobState is the CompoundJob lifecycle state. It is derived from the
// states of the job's actions (see pkg/job.Job.updateJobStateFromActions), never set
// directly by a scheduler except for NotSubmitted/Submitted/Discontinued.
type JobState string

const (
	JobNotSubmitted JobState = "not_submitted"
	JobSubmitted    JobState = "submitted"
	JobRunning      JobState = "running"
	JobCompleted    JobState = "completed"
	JobFailed       JobState = "failed"
	JobDiscontinued JobState = "discontinued"
)

// CompoundJob is a DAG of Actions submitted as a unit by one submitter
// controller. The action arena is exclusively owned by the job: actions
// live exactly as long as it does.
type CompoundJob struct {
	ID         string
	Submitter  string
	State      JobState
	Priority   float64
	Actions    map[ActionID]*Action
	NameToID   map[string]ActionID
	CreatedAt  time.Time
}

// HostAllocation records one (host, cores, ram) tuple granted to a
// BatchJob by a host-selection algorithm.
type HostAllocation struct {
	Host     string
	Cores    int
	RAMBytes int64
}

// BatchJobState is the BatchJob lifecycle state.
type BatchJobState string

const (
	BatchPending   BatchJobState = "pending"
	BatchRunning   BatchJobState = "running"
	BatchCompleted BatchJobState = "completed"
	BatchTimedOut  BatchJobState = "timed_out"
	BatchKilled    BatchJobState = "killed"
	BatchFailed    BatchJobState = "failed"
)

// BatchJob wraps a CompoundJob with the batch-geometry arguments (-N,
// -c, -t) a batch scheduler admits on.
type BatchJob struct {
	Job              *CompoundJob
	RequestedNodes   int
	CoresPerNode     int
	RAMPerNode       int64
	WallTime         time.Duration
	ArrivalDate      time.Time
	Allocated        []HostAllocation
	WallDeadline     time.Time
	State            BatchJobState
	Priority         float64
	IsPilot          bool
}

// RegisteredFunction is a serverless function registration: the user
// function, its image handle, and the resource limits every Invocation
// of it must respect.
type RegisteredFunction struct {
	ID                string
	Name              string
	Fn                func(input []byte) ([]byte, error)
	ImageID           string // content identity of the image DataFile
	ImageSizeBytes    int64
	TimeLimit         time.Duration
	DiskSpaceLimitBytes int64
	RAMLimitBytes     int64
	IngressBytes      int64
	EgressBytes       int64
}

// InvocationState is the Invocation lifecycle state.
type InvocationState string

const (
	InvocationNew       InvocationState = "new"
	InvocationAdmitted  InvocationState = "admitted"
	InvocationSchedulable InvocationState = "schedulable"
	InvocationRunning   InvocationState = "running"
	InvocationCompleted InvocationState = "completed"
	InvocationFailed    InvocationState = "failed"
)

// Invocation is one call of a RegisteredFunction.
type Invocation struct {
	ID           string
	Function     *RegisteredFunction
	Input        []byte
	SubmitDate   time.Time
	StartDate    time.Time
	EndDate      time.Time
	TargetHost   string
	SandboxPath  string // transient on-disk sandbox, sized DiskSpaceLimitBytes
	ImagePinned  bool   // true while a RAM-store handle to the image is held open
	State        InvocationState
	Output       []byte
	FailureCause error
}

// VMState is the VirtualMachine lifecycle state.
type VMState string

const (
	VMDown      VMState = "down"
	VMRunning   VMState = "running"
	VMSuspended VMState = "suspended"
)

// VirtualMachine is a VM hosted on a physical ExecutionHost. pkg/cloud
// tracks its state and its reservation on the physical host; it does
// not host an ActionExecutionService of its own.
type VirtualMachine struct {
	ID           string
	PhysicalHost string
	Cores        int
	RAMBytes     int64
	State        VMState
	CreatedAt    time.Time
}

// ExecutionHost is a simulated compute resource: a name, a core count,
// RAM, named disk partitions, and a flop rate. This is the only piece
// of the discrete-event kernel (C1) this module owns a concrete shape
// for, because every scheduler needs something to allocate against;
// simulated clock and link bandwidth remain genuinely external.
type ExecutionHost struct {
	Name     string
	Cores    int
	RAMBytes int64
	Disks    map[string]int64 // mount point -> capacity bytes
	FlopRate float64          // flops/sec per core
}

// EventKind tags the variant of an Event.
type EventKind string

const (
	EventStandardJobCompleted       EventKind = "standard_job_completed"
	EventStandardJobFailed          EventKind = "standard_job_failed"
	EventCompoundJobCompleted       EventKind = "compound_job_completed"
	EventCompoundJobFailed          EventKind = "compound_job_failed"
	EventPilotJobStarted            EventKind = "pilot_job_started"
	EventPilotJobExpired            EventKind = "pilot_job_expired"
	EventFunctionInvocationComplete EventKind = "function_invocation_complete"
)

// Event is the typed payload delivered to a submitter controller's
// mailbox. At most one terminal Event is produced per submitted job or
// invocation; a batch job terminated while still pending produces none
// (see pkg/failure and pkg/events).
type Event struct {
	Kind         EventKind
	JobID        string
	InvocationID string
	Cause        error
	Date         time.Time
	Success      bool // meaningful for FunctionInvocationComplete
}
