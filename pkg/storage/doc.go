// Package storage is the file-location collaborator actions 4.2 (file
// read/write/copy/delete, registry add/delete) delegate to. It never
// touches a real filesystem; a Store tracks which named locations
// exist and how large they are, purely so byte-transfer durations and
// FileNotFound can be computed/surfaced deterministically.
package storage
