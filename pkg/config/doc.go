/*
Package config loads the simulator's keyed configuration options
(§6) from YAML into a typed Config, validating every key against its
allowed-values table and rejecting unknown keys or malformed values
with failure.InvalidArgument. It is the only sanctioned entry point
for constructing scheduler/service options — no other package reads
configuration ad hoc.
*/
package config
