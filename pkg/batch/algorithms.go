package batch

import (
	"sort"
	"time"
)

// dispatchFCFSLocked pops and dispatches the head of the queue while
// it fits, stopping (blocking the remainder) the first time it
// doesn't. The caller must hold s.mu.
func (s *Scheduler) dispatchFCFSLocked() {
	for len(s.pending) > 0 {
		if !s.dispatch(s.pending[0]) {
			return
		}
		s.pending = s.pending[1:]
	}
}

// dispatchFillerLocked walks the whole queue every tick, dispatching
// any job that currently fits and skipping (never blocking on) one
// that doesn't.
func (s *Scheduler) dispatchFillerLocked() {
	i := 0
	for i < len(s.pending) {
		if s.dispatch(s.pending[i]) {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			continue
		}
		i++
	}
}

// dispatchEASYLocked implements EASY backfilling: the head of the
// queue gets a reservation (its shadow time); any later job that both
// fits now and would finish before that shadow time may jump ahead of
// it.
func (s *Scheduler) dispatchEASYLocked() {
	for len(s.pending) > 0 && s.dispatch(s.pending[0]) {
		s.pending = s.pending[1:]
	}
	if len(s.pending) == 0 {
		return
	}

	head := s.pending[0]
	shadow := s.shadowTime(head.requestedCores())
	now := s.clock.Now()

	i := 1
	for i < len(s.pending) {
		cand := s.pending[i]
		if fitsWithinShadow(now, cand.batch.WallTime, shadow) && s.dispatch(cand) {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			continue
		}
		i++
	}
}

// dispatchConservativeLocked implements conservative backfilling:
// every job in the queue, not just the head, is given a protected
// reservation computed against every reservation ahead of it; a job
// only runs now if its own earliest feasible start is now.
func (s *Scheduler) dispatchConservativeLocked() {
	var reservations []reservation
	for _, rj := range s.running {
		reservations = append(reservations, reservation{end: rj.batch.WallDeadline, cores: rj.requestedCores()})
	}

	now := s.clock.Now()
	i := 0
	for i < len(s.pending) {
		pj := s.pending[i]
		need := pj.requestedCores()
		est := s.conservativeEarliestStart(reservations, need, pj.batch.WallTime)

		if !est.After(now) && s.dispatch(pj) {
			reservations = append(reservations, reservation{start: now, end: pj.batch.WallDeadline, cores: need})
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			continue
		}
		reservations = append(reservations, reservation{start: est, end: est.Add(pj.batch.WallTime), cores: need})
		i++
	}
}

// orderQueue sorts pending jobs in place per the configured queue
// ordering. FCFS is already arrival order (jobs are appended on
// submit); priority sorts higher Priority first, ties broken by
// arrival order (stable sort).
func (s *Scheduler) orderQueue() {
	if s.cfg.QueueOrdering != OrderPriority {
		return
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].batch.Priority > s.pending[j].batch.Priority
	})
}

// totalCores returns the cluster's total core capacity, used by the
// backfill algorithms as a single aggregate resource dimension. Actual
// placement still goes through selectHosts against real per-host
// pools; the backfill timeline below only decides *whether* and
// *when* to try, not *where*.
func (s *Scheduler) totalCores() int {
	total := 0
	for _, p := range s.registry.Ordered() {
		total += p.Spec().Cores
	}
	return total
}

func (s *Scheduler) freeCoresNow() int {
	free := 0
	for _, p := range s.registry.Ordered() {
		c, _ := p.Available()
		free += c
	}
	return free
}

func (j *pendingJob) requestedCores() int {
	return j.batch.RequestedNodes * j.batch.CoresPerNode
}

// shadowTime computes the earliest simulated time at which enough
// cores will be free, cluster-wide, to satisfy need — the classic
// EASY-backfill reservation for the head-of-queue job. It walks
// currently-running jobs' WallDeadlines as release events.
func (s *Scheduler) shadowTime(need int) time.Time {
	now := s.clock.Now()
	free := s.freeCoresNow()
	if free >= need {
		return now
	}
	type release struct {
		at    time.Time
		cores int
	}
	var releases []release
	for _, r := range s.running {
		releases = append(releases, release{at: r.batch.WallDeadline, cores: r.requestedCores()})
	}
	sort.Slice(releases, func(i, j int) bool { return releases[i].at.Before(releases[j].at) })
	for _, r := range releases {
		free += r.cores
		if free >= need {
			return r.at
		}
	}
	// Nothing frees enough cores even once every running job ends —
	// degrade to "never" represented as the last known release time.
	if len(releases) > 0 {
		return releases[len(releases)-1].at
	}
	return now
}

// fitsWithinShadow reports whether a job requesting `need` cores for
// `wall` duration, if started now, would finish at or before deadline
// — i.e. whether it can be backfilled without delaying the
// reservation the shadow time represents.
func fitsWithinShadow(now time.Time, wall time.Duration, deadline time.Time) bool {
	return !now.Add(wall).After(deadline)
}

// reservation is one entry of the conservative-backfilling profile: a
// job already granted a reservation (the running set plus every
// pending job processed so far this tick, in queue order) holding
// cores from start to end. conservativeEarliestStart scans these to
// find the next pending job's own earliest feasible start: unlike
// EASY, every job ahead in the queue gets a protected reservation,
// not just the head.
type reservation struct {
	start time.Time
	end   time.Time
	cores int
}

func (s *Scheduler) conservativeEarliestStart(reservations []reservation, need int, wall time.Duration) time.Time {
	now := s.clock.Now()
	capacity := s.totalCores()

	candidates := []time.Time{now}
	for _, r := range reservations {
		candidates = append(candidates, r.start, r.end)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	for _, t := range candidates {
		if t.Before(now) {
			continue
		}
		end := t.Add(wall)
		used := 0
		for _, r := range reservations {
			if r.start.Before(end) && r.end.After(t) {
				used += r.cores
			}
		}
		if capacity-used >= need {
			return t
		}
	}
	return now.Add(wall) // fallback, should not normally be reached
}
