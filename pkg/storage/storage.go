package storage

import (
	"sync"

	"github.com/wrench-sim/wrench/pkg/failure"
)

// File records a named location's size. No bytes are ever actually
// held in memory; Size is the only thing a simulated transfer needs.
type File struct {
	Location string
	Bytes    int64
}

// Store is an in-memory reference implementation of the
// file-location collaborator: a flat namespace of File records guarded
// by a single mutex, good enough for every action kind in 4.2. The
// serverless head-node/per-node image tiers in 4.5 do not use it; they
// keep their own LRU image stores.
type Store struct {
	mu    sync.Mutex
	files map[string]File
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{files: make(map[string]File)}
}

// Write creates or overwrites location with the given size. Used by
// FileWrite, FileRegistryAdd and the serverless scheduler's invocation
// sandboxes; FileCopy lands its file through Copy.
func (s *Store) Write(location string, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[location] = File{Location: location, Bytes: bytes}
}

// Read returns the size of location, or FileNotFound.
func (s *Store) Read(location string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[location]
	if !ok {
		return 0, &failure.FileNotFound{Location: location}
	}
	return f.Bytes, nil
}

// Copy duplicates src to dst, propagating FileNotFound unchanged if
// src does not exist.
func (s *Store) Copy(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[src]
	if !ok {
		return &failure.FileNotFound{Location: src}
	}
	s.files[dst] = File{Location: dst, Bytes: f.Bytes}
	return nil
}

// Delete removes location, propagating FileNotFound unchanged if it
// does not exist.
func (s *Store) Delete(location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[location]; !ok {
		return &failure.FileNotFound{Location: location}
	}
	delete(s.files, location)
	return nil
}

// Exists reports whether location is present.
func (s *Store) Exists(location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[location]
	return ok
}
