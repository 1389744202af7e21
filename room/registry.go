// room/registry.go
package room

import (
	"sync"
)

// Registry 管理所有房间
//
// The registry is the sole owner of the roomID -> Room mapping. Rooms are
// created on demand and deleted the moment they are empty; an empty room is
// never stored. Room internals are mutated only by the Coordinator.
type Registry struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the existing room or stores a fresh empty one. The
// caller must reject empty room IDs before reaching the registry.
func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if r, exists := g.rooms[roomID]; exists {
		return r
	}
	r := newRoom(roomID)
	g.rooms[roomID] = r
	return r
}

func (g *Registry) Get(roomID string) (*Room, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	r, exists := g.rooms[roomID]
	return r, exists
}

// RemoveIfEmpty deletes the entry when it has no host and no members.
// Idempotent: unknown rooms are a no-op.
func (g *Registry) RemoveIfEmpty(roomID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if r, exists := g.rooms[roomID]; exists && r.Empty() {
		delete(g.rooms, roomID)
	}
}

func (g *Registry) Count() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.rooms)
}

// all returns a snapshot of every tracked room.
func (g *Registry) all() []*Room {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}
