/*
Package cloud implements the CloudVMManager / VirtualizedCluster
(§4.6): VM lifecycle management over a shared pkg/host.Registry, with
createVM/migrateVM and the resource-accounting invariant that
Σ(running VM cores/RAM on host h) never exceeds h's capacity at any
simulated instant.

migrateVM's simulated cost is a Clock-proportional sleep on the VM's
RAM size, so it is deterministic under simclock.VirtualClock, which
the tests and the cmd/wrench-sim scenarios use, and wall-clock-real
under simclock.RealClock.
*/
package cloud
