package batch

import (
	"github.com/wrench-sim/wrench/pkg/failure"
	"github.com/wrench-sim/wrench/pkg/host"
	"github.com/wrench-sim/wrench/pkg/types"
)

// selectHosts places a job requesting n nodes of (coresPerNode,
// ramPerNode) according to s.cfg.HostSelection, reserving resources on every host it
// picks. On failure to place all n nodes it releases every tentative
// reservation it made and returns NotEnoughResources, leaving the
// registry exactly as it found it.
func (s *Scheduler) selectHosts(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error) {
	switch s.cfg.HostSelection {
	case BestFit:
		return s.selectBestFit(n, coresPerNode, ramPerNode)
	case RoundRobin:
		return s.selectRoundRobin(n, coresPerNode, ramPerNode)
	default:
		return s.selectFirstFit(n, coresPerNode, ramPerNode)
	}
}

func rollback(allocs []types.HostAllocation, registry *host.Registry) {
	for _, a := range allocs {
		if p := registry.Get(a.Host); p != nil {
			p.Release(a.Cores, a.RAMBytes)
		}
	}
}

// selectFirstFit scans hosts in registration order, reserving the
// first n that have enough free cores and RAM.
func (s *Scheduler) selectFirstFit(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error) {
	var allocs []types.HostAllocation
	for _, p := range s.registry.Ordered() {
		if len(allocs) == n {
			break
		}
		if err := p.Reserve(coresPerNode, ramPerNode); err == nil {
			allocs = append(allocs, types.HostAllocation{Host: p.Name(), Cores: coresPerNode, RAMBytes: ramPerNode})
		}
	}
	if len(allocs) < n {
		rollback(allocs, s.registry)
		return nil, &failure.NotEnoughResources{}
	}
	return allocs, nil
}

// selectBestFit repeatedly reserves on the eligible host that leaves
// the smallest non-negative core slack, breaking ties by larger
// post-allocation core count then registration order.
func (s *Scheduler) selectBestFit(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error) {
	var allocs []types.HostAllocation
	for len(allocs) < n {
		pools := s.registry.Ordered()
		var best *host.Pool
		bestSlack := -1
		bestFree := -1
		for _, p := range pools {
			free, ram := p.Available()
			if free < coresPerNode || ram < ramPerNode {
				continue
			}
			slack := free - coresPerNode
			if best == nil || slack < bestSlack || (slack == bestSlack && free > bestFree) {
				best = p
				bestSlack = slack
				bestFree = free
			}
		}
		if best == nil {
			rollback(allocs, s.registry)
			return nil, &failure.NotEnoughResources{}
		}
		if err := best.Reserve(coresPerNode, ramPerNode); err != nil {
			rollback(allocs, s.registry)
			return nil, err
		}
		allocs = append(allocs, types.HostAllocation{Host: best.Name(), Cores: coresPerNode, RAMBytes: ramPerNode})
	}
	return allocs, nil
}

// selectRoundRobin places one node per host starting from the
// scheduler's rotating pointer, advancing it past every host it tries
// (whether or not that host had room), and wrapping around the host
// list.
func (s *Scheduler) selectRoundRobin(n, coresPerNode int, ramPerNode int64) ([]types.HostAllocation, error) {
	pools := s.registry.Ordered()
	if len(pools) == 0 {
		return nil, &failure.NotEnoughResources{}
	}

	var allocs []types.HostAllocation
	attempts := 0
	for len(allocs) < n && attempts < len(pools)*2 {
		p := pools[s.rrIndex%len(pools)]
		s.rrIndex = (s.rrIndex + 1) % len(pools)
		attempts++
		if err := p.Reserve(coresPerNode, ramPerNode); err == nil {
			allocs = append(allocs, types.HostAllocation{Host: p.Name(), Cores: coresPerNode, RAMBytes: ramPerNode})
		}
	}
	if len(allocs) < n {
		rollback(allocs, s.registry)
		return nil, &failure.NotEnoughResources{}
	}
	return allocs, nil
}
