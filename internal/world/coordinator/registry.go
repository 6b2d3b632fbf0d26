package coordinator

import (
	"time"

	"github.com/loreweave/loreweave/internal/world/state"
	"github.com/loreweave/loreweave/internal/world/timeline"
)

// managedWorld pairs a world aggregate with its timeline engine and the
// coordinator's bookkeeping for it.
type managedWorld struct {
	world  *state.World
	engine *timeline.Engine
	// sink buffers events accepted by the engine until the next durable
	// flush and invalidates cached views as they land.
	sink *eventSink
	// updatedAt orders registry eviction, least recently updated first.
	updatedAt time.Time
}

// Registry is the bounded in-memory map of active worlds. When the bound
// is exceeded the least-recently-updated world is evicted; evicted worlds
// were persisted on their last mutation and reload from the durable store
// on next access.
type Registry struct {
	worlds map[string]*managedWorld
	max    int
}

// NewRegistry builds a registry bounded to max active worlds.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = defaultMaxActiveWorlds
	}
	return &Registry{
		worlds: make(map[string]*managedWorld),
		max:    max,
	}
}

// Get returns the managed world, or nil when not resident.
func (r *Registry) Get(id string) *managedWorld {
	return r.worlds[id]
}

// Put makes a world resident, evicting the least-recently-updated entry
// when the bound is exceeded. It returns the evicted world id, if any.
func (r *Registry) Put(id string, mw *managedWorld) string {
	r.worlds[id] = mw
	if len(r.worlds) <= r.max {
		return ""
	}

	var oldest string
	var oldestAt time.Time
	for wid, candidate := range r.worlds {
		if wid == id {
			continue
		}
		if oldest == "" || candidate.updatedAt.Before(oldestAt) {
			oldest = wid
			oldestAt = candidate.updatedAt
		}
	}
	delete(r.worlds, oldest)
	return oldest
}

// Touch marks a world as just updated.
func (r *Registry) Touch(id string, at time.Time) {
	if mw, ok := r.worlds[id]; ok {
		mw.updatedAt = at
	}
}

// Remove drops a world from the registry.
func (r *Registry) Remove(id string) {
	delete(r.worlds, id)
}

// Len returns the number of resident worlds.
func (r *Registry) Len() int { return len(r.worlds) }

// IDs returns the resident world ids in no particular order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.worlds))
	for id := range r.worlds {
		ids = append(ids, id)
	}
	return ids
}
