package adapter

import (
	"context"
	"sort"
)

// NativeAdapter is the built-in SchedulerAdapter: FCFS admission order
// combined with an LRU-ish image placement rule — prefer a host that
// already has the image resident in RAM, then one that has it on
// disk, then the host with the most free cores.
type NativeAdapter struct{}

func NewNativeAdapter() *NativeAdapter { return &NativeAdapter{} }

func (a *NativeAdapter) Schedule(ctx context.Context, schedulable []InvocationView, state SystemState) (Placement, error) {
	p := Placement{
		Copy:  make(map[string][]string),
		Load:  make(map[string][]string),
		Start: make(map[string][]string),
	}

	hosts := make([]HostView, len(state.Hosts))
	copy(hosts, state.Hosts)
	sort.SliceStable(hosts, func(i, j int) bool { return hosts[i].CoresFree > hosts[j].CoresFree })

	freeCores := make(map[string]int, len(hosts))
	for _, h := range hosts {
		freeCores[h.Name] = h.CoresFree
	}

	for _, inv := range schedulable {
		host := a.pickHost(hosts, freeCores, inv)
		if host == "" {
			continue
		}
		freeCores[host]--

		if !state.hostHasImage(host, inv.ImageID, true) {
			if !state.hostHasImage(host, inv.ImageID, false) {
				p.Copy[host] = append(p.Copy[host], inv.ImageID)
			}
			p.Load[host] = append(p.Load[host], inv.ImageID)
		}
		p.Start[host] = append(p.Start[host], inv.ID)
	}
	return p, nil
}

// pickHost prefers, in order: a host with the image already in RAM, a
// host with the image on disk, then the host with the most free
// cores. Every candidate must have at least one core free.
func (a *NativeAdapter) pickHost(hosts []HostView, freeCores map[string]int, inv InvocationView) string {
	var inRAM, onDisk, mostFree string
	for _, h := range hosts {
		if freeCores[h.Name] <= 0 {
			continue
		}
		if mostFree == "" {
			mostFree = h.Name
		}
		if h.ImageInRAM[inv.ImageID] && inRAM == "" {
			inRAM = h.Name
		}
		if h.ImageOnDisk[inv.ImageID] && onDisk == "" {
			onDisk = h.Name
		}
	}
	switch {
	case inRAM != "":
		return inRAM
	case onDisk != "":
		return onDisk
	default:
		return mostFree
	}
}

func (s SystemState) hostHasImage(host, image string, inRAM bool) bool {
	for _, h := range s.Hosts {
		if h.Name != host {
			continue
		}
		if inRAM {
			return h.ImageInRAM[image]
		}
		return h.ImageOnDisk[image]
	}
	return false
}
