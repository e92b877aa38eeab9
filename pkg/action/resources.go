package action

import specs "github.com/opencontainers/runtime-spec/specs-go"

const (
	cpuPeriodUs int64 = 100000
	sharesPerCore int64 = 1024
)

// cpuLimits converts an allocated core count into the CPU
// shares/quota/period triple an OCI runtime describes a container's
// CPU allocation with. WRENCH never creates a container from this; it
// is reused only as a validated, already-familiar representation of
// "this many cores" that pins down period/quota rounding once instead
// of ad hoc at every call site.
func cpuLimits(cores int) *specs.LinuxCPU {
	shares := uint64(cores) * uint64(sharesPerCore)
	quota := int64(cores) * cpuPeriodUs
	period := uint64(cpuPeriodUs)
	return &specs.LinuxCPU{
		Shares: &shares,
		Quota:  &quota,
		Period: &period,
	}
}

// coresFromCPULimits recovers the core count a cpuLimits value encodes.
// Neither it nor cpuLimits is called elsewhere in this module; Run
// takes its core count directly as an int.
func coresFromCPULimits(c *specs.LinuxCPU) int {
	if c == nil || c.Quota == nil {
		return 0
	}
	return int(*c.Quota / cpuPeriodUs)
}
