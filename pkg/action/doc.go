/*
Package action implements the ActionExecutor family (§4.2): one
executor per started Action, responsible for simulating the action's
time cost and reporting completion/failure back to its owner.

Run validates its grant directly on start: the core count must be
positive and the RAM grant must cover the action's MinRAMBytes.
resources.go also holds a conversion between a core count and an OCI
LinuxCPU shares/quota descriptor; Run does not use it, and no
container runtime is ever invoked here.
*/
package action
