package metrics

import "time"

// HostSnapshot is a point-in-time view of one execution host's resource
// pools, as exposed by pkg/host.Registry. Defined here (rather than
// imported) so this package stays a leaf dependency for every scheduler.
type HostSnapshot struct {
	Name       string
	CoresFree  int
	RAMFreeMB  int64
}

// HostLister is satisfied by pkg/host.Registry. Kept minimal to avoid a
// metrics -> host import cycle (host already imports metrics).
type HostLister interface {
	Snapshot() []HostSnapshot
}

// Collector periodically samples host resource pools into gauges.
type Collector struct {
	hosts  HostLister
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over the given host registry.
func NewCollector(hosts HostLister) *Collector {
	return &Collector{
		hosts:  hosts,
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic collection on its own goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.hosts == nil {
		return
	}
	for _, h := range c.hosts.Snapshot() {
		HostCoresFree.WithLabelValues(h.Name).Set(float64(h.CoresFree))
		HostRAMFreeBytes.WithLabelValues(h.Name).Set(float64(h.RAMFreeMB) * 1024 * 1024)
	}
}
