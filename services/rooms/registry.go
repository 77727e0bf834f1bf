package rooms

import (
	"sync"
)

// Registry hands out one serialization unit per room number: all lifecycle
// mutations on the same room run one at a time, while different rooms proceed
// fully in parallel. There is no global lock around the work itself — the
// registry mutex only guards the entry map.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*registryEntry
}

type registryEntry struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*registryEntry)}
}

// WithRoom runs fn under the serialization unit for roomNumber. The entry is
// created lazily and dropped once the last waiter releases it, so idle rooms
// hold no memory. Whether the room exists in the store is fn's business: a
// missing room must surface as NotFound, never as a blocked caller.
func (r *Registry) WithRoom(roomNumber string, fn func() error) error {
	r.mu.Lock()
	entry, ok := r.rooms[roomNumber]
	if !ok {
		entry = &registryEntry{}
		r.rooms[roomNumber] = entry
	}
	entry.refs++
	r.mu.Unlock()

	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(r.rooms, roomNumber)
		}
		r.mu.Unlock()
	}()

	return fn()
}

// Active returns the number of rooms with an operation in flight or queued.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
