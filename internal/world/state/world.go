// Package state defines the world aggregate: the mutable description of all
// active entities, flags and pending evolution work for one simulated world.
package state

import (
	"sort"
	"time"
)

// Status describes the lifecycle state of a world.
type Status string

const (
	// StatusActive is a world accepting mutations and evolution ticks.
	StatusActive Status = "active"
	// StatusPaused is a world whose evolution is suspended; direct
	// mutations still apply.
	StatusPaused Status = "paused"
	// StatusDegraded is a world running with reduced feature richness
	// after a recovery pass.
	StatusDegraded Status = "degraded"
	// StatusArchived is a world evicted from active play.
	StatusArchived Status = "archived"
)

// Attributes is the free-form attribute bag attached to each entity.
type Attributes map[string]any

// Clone returns a shallow-value copy of the attribute bag.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	cloned := make(Attributes, len(a))
	for key, value := range a {
		cloned[key] = value
	}
	return cloned
}

// ScheduledTask is a pending evolution task with a due time.
type ScheduledTask struct {
	// ID uniquely identifies the task.
	ID string
	// Kind names what the task does when it fires.
	Kind string
	// EntityID optionally targets one entity.
	EntityID string
	// Due is the simulated time at which the task fires.
	Due time.Time
	// Payload carries task-specific data.
	Payload map[string]any
}

// World is the aggregate root for one simulated world.
type World struct {
	// ID uniquely identifies the world.
	ID string
	// CurrentTime is the current simulated time.
	CurrentTime time.Time
	// Status is the lifecycle flag.
	Status Status
	// Characters maps character id to its attribute bag.
	Characters map[string]Attributes
	// Locations maps location id to its attribute bag.
	Locations map[string]Attributes
	// Objects maps object id to its attribute bag.
	Objects map[string]Attributes
	// Flags holds named world flags.
	Flags map[string]any
	// Schedule is the ordered list of pending evolution tasks.
	Schedule []ScheduledTask
	// Version counts successful saves of this world.
	Version uint64
	// CreatedAt is when the world was initialized (wall clock).
	CreatedAt time.Time
	// UpdatedAt is when the world last mutated (wall clock).
	UpdatedAt time.Time
}

// NewWorld creates an active world with empty entity maps.
func NewWorld(id string, start time.Time) *World {
	now := time.Now().UTC()
	return &World{
		ID:          id,
		CurrentTime: start.UTC(),
		Status:      StatusActive,
		Characters:  make(map[string]Attributes),
		Locations:   make(map[string]Attributes),
		Objects:     make(map[string]Attributes),
		Flags:       make(map[string]any),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the world. Attribute values are copied by
// value; nested mutable values inside attribute bags are shared.
func (w *World) Clone() *World {
	if w == nil {
		return nil
	}
	cloned := *w
	cloned.Characters = cloneEntityMap(w.Characters)
	cloned.Locations = cloneEntityMap(w.Locations)
	cloned.Objects = cloneEntityMap(w.Objects)
	if w.Flags != nil {
		cloned.Flags = make(map[string]any, len(w.Flags))
		for key, value := range w.Flags {
			cloned.Flags[key] = value
		}
	}
	if w.Schedule != nil {
		cloned.Schedule = make([]ScheduledTask, len(w.Schedule))
		copy(cloned.Schedule, w.Schedule)
	}
	return &cloned
}

func cloneEntityMap(entities map[string]Attributes) map[string]Attributes {
	if entities == nil {
		return nil
	}
	cloned := make(map[string]Attributes, len(entities))
	for id, attrs := range entities {
		cloned[id] = attrs.Clone()
	}
	return cloned
}

// Entity returns the attribute bag and kind for an entity id, searching
// characters, then locations, then objects.
func (w *World) Entity(id string) (Attributes, string, bool) {
	if attrs, ok := w.Characters[id]; ok {
		return attrs, "character", true
	}
	if attrs, ok := w.Locations[id]; ok {
		return attrs, "location", true
	}
	if attrs, ok := w.Objects[id]; ok {
		return attrs, "object", true
	}
	return nil, "", false
}

// EntityKinds returns every entity id mapped to its kind.
func (w *World) EntityKinds() map[string]string {
	out := make(map[string]string, len(w.Characters)+len(w.Locations)+len(w.Objects))
	for id := range w.Characters {
		out[id] = "character"
	}
	for id := range w.Locations {
		out[id] = "location"
	}
	for id := range w.Objects {
		out[id] = "object"
	}
	return out
}

// ScheduleTask inserts a task keeping the schedule ordered by due time.
func (w *World) ScheduleTask(task ScheduledTask) {
	idx := sort.Search(len(w.Schedule), func(i int) bool {
		return w.Schedule[i].Due.After(task.Due)
	})
	w.Schedule = append(w.Schedule, ScheduledTask{})
	copy(w.Schedule[idx+1:], w.Schedule[idx:])
	w.Schedule[idx] = task
}

// DueTasks removes and returns every task due at or before the given time,
// in due order.
func (w *World) DueTasks(at time.Time) []ScheduledTask {
	idx := sort.Search(len(w.Schedule), func(i int) bool {
		return w.Schedule[i].Due.After(at)
	})
	if idx == 0 {
		return nil
	}
	due := make([]ScheduledTask, idx)
	copy(due, w.Schedule[:idx])
	w.Schedule = append(w.Schedule[:0], w.Schedule[idx:]...)
	return due
}

// CharacterLocation returns the location id a character currently occupies,
// read from its "location" attribute.
func (w *World) CharacterLocation(characterID string) string {
	attrs, ok := w.Characters[characterID]
	if !ok {
		return ""
	}
	loc, _ := attrs["location"].(string)
	return loc
}

// ObjectOwner returns the owning entity id of an object, read from its
// "owner" attribute.
func (w *World) ObjectOwner(objectID string) string {
	attrs, ok := w.Objects[objectID]
	if !ok {
		return ""
	}
	owner, _ := attrs["owner"].(string)
	return owner
}
