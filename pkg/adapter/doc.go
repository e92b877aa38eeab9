/*
Package adapter is the external scheduler boundary (§4.8): the
ServerlessScheduler's control loop calls a SchedulerAdapter once per
tick instead of hard-coding its placement policy, and the
BatchScheduler's host selection is exposed through the HostSelector
interface; which of FIRSTFIT/BESTFIT/ROUNDROBIN it applies is fixed
by the BatchScheduler's Config.

A real RPC transport is deliberately not used for SubprocessAdapter: a
gRPC (or any real socket) transport would reintroduce genuine
wall-clock network I/O into a simulator core that has no network
transport of its own. A subprocess talking line-delimited JSON over
its stdin/stdout is the narrowest real boundary that still lets an
external decision-maker be swapped in.
*/
package adapter
