package serverless

import (
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/wrench-sim/wrench/pkg/failure"
)

// cacheEntry is the value stored against an image key in an
// imageStore: just its size, since no bytes are ever actually held.
type cacheEntry struct {
	size int64
}

// imageStore is a byte-capacity-bounded LRU over image IDs, used for
// both a compute node's on-disk store and its RAM store. Eviction
// order comes from simplelru.LRU; byte accounting and the
// pinned-entries-are-not-evictable rule are layered on top of it.
//
// Pin/Unpin track open handles. An entry with a positive pin count
// that simplelru tries to evict is re-inserted by the OnEvicted
// callback, which makes it most-recently-used again and pushes
// eviction pressure onto the next-oldest entry instead. imageStore has
// no mutex of its own and simplelru itself isn't safe for concurrent
// use, so callers serialize access (the serverless Scheduler does so
// under its own mutex).
type imageStore struct {
	capacity int64
	used     int64
	lru      *simplelru.LRU
	pinned   map[string]int
}

func newImageStore(capacityBytes int64) *imageStore {
	s := &imageStore{capacity: capacityBytes, pinned: make(map[string]int)}
	l, err := simplelru.NewLRU(1<<30, s.onEvicted)
	if err != nil {
		panic(err) // 1<<30 is always a valid positive size
	}
	s.lru = l
	return s
}

func (s *imageStore) onEvicted(key, value interface{}) {
	entry := value.(cacheEntry)
	if s.pinned[key.(string)] > 0 {
		_ = s.lru.Add(key, value)
		return
	}
	s.used -= entry.size
}

// Has reports whether image is currently resident, bumping its
// recency if so.
func (s *imageStore) Has(image string) bool {
	_, ok := s.lru.Get(image)
	return ok
}

// Insert adds image at size bytes, evicting least-recently-used
// non-pinned entries until it fits. Returns NotEnoughResources if
// pinned entries (or the capacity itself) leave no room.
func (s *imageStore) Insert(image string, size int64) error {
	if s.lru.Contains(image) {
		s.lru.Get(image)
		return nil
	}
	if size > s.capacity {
		return &failure.NotEnoughResources{}
	}

	s.lru.Add(image, cacheEntry{size: size})
	s.used += size

	// RemoveOldest walks oldest-to-newest; a pinned oldest entry gets
	// re-added by onEvicted (becoming newest), so one no-progress call
	// only means *that* entry is pinned, not that eviction is exhausted
	// — keep trying until attempts (bounded by entry count) runs out.
	attempts := s.lru.Len()
	for s.used > s.capacity && attempts > 0 {
		s.lru.RemoveOldest()
		attempts--
	}

	if !s.lru.Contains(image) {
		// Only pinned entries were left ahead of the new entry, so the
		// loop evicted it; onEvicted already took its size out of used.
		return &failure.NotEnoughResources{}
	}
	if s.used > s.capacity {
		s.lru.Remove(image)
		s.used -= size
		return &failure.NotEnoughResources{}
	}
	return nil
}

// Pin marks image as in-use, protecting it from eviction until a
// matching Unpin. Pin counts nest: a doubly-pinned image needs two
// Unpins before it becomes evictable again.
func (s *imageStore) Pin(image string) {
	s.pinned[image]++
}

// Unpin releases one pin on image.
func (s *imageStore) Unpin(image string) {
	if s.pinned[image] > 0 {
		s.pinned[image]--
		if s.pinned[image] == 0 {
			delete(s.pinned, image)
		}
	}
}

// Remove forcibly evicts image regardless of pin state, used when an
// invocation's image must be dropped (e.g. the head copy changed).
func (s *imageStore) Remove(image string) {
	delete(s.pinned, image)
	s.lru.Remove(image)
}
