// Package job is the capability boundary around types.CompoundJob
// (§3 "friend-class mutator" resolution): a CompoundJob's arena is
// only ever mutated through a Job, never by reaching into its map
// fields directly.
package job
