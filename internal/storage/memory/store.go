// Package memory provides in-memory implementations of the storage
// interfaces, used by tests and by the degraded cache-only persistence mode.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

type timelineKey struct {
	worldID  string
	entityID string
}

// Store keeps worlds and timeline events in memory.
type Store struct {
	mu        sync.Mutex
	worlds    map[string]*state.World
	events    map[timelineKey][]event.Event
	kinds     map[timelineKey]event.EntityKind
	failSaves bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		worlds: make(map[string]*state.World),
		events: make(map[timelineKey][]event.Event),
		kinds:  make(map[timelineKey]event.EntityKind),
	}
}

// FailSaves toggles forced save failures, used by recovery tests.
func (s *Store) FailSaves(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = fail
}

// SaveWorldState persists a deep copy of the world.
func (s *Store) SaveWorldState(ctx context.Context, world *state.World) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if world == nil || strings.TrimSpace(world.ID) == "" {
		return errors.New("world id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return errors.New("store unavailable")
	}
	s.worlds[world.ID] = world.Clone()
	return nil
}

// LoadWorldState returns a deep copy of the stored world.
func (s *Store) LoadWorldState(ctx context.Context, id string) (*state.World, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	world, ok := s.worlds[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return world.Clone(), nil
}

// ListWorldIDs returns the stored world ids, sorted.
func (s *Store) ListWorldIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.worlds))
	for id := range s.worlds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteWorld removes a world and its timelines.
func (s *Store) DeleteWorld(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.worlds, id)
	for key := range s.events {
		if key.worldID == id {
			delete(s.events, key)
			delete(s.kinds, key)
		}
	}
	return nil
}

// AppendTimelineEvent stores an event on an entity's timeline.
func (s *Store) AppendTimelineEvent(ctx context.Context, worldID, entityID string, kind event.EntityKind, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(worldID) == "" || strings.TrimSpace(entityID) == "" {
		return errors.New("world id and entity id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return errors.New("store unavailable")
	}
	key := timelineKey{worldID: worldID, entityID: entityID}
	s.events[key] = append(s.events[key], evt.Clone())
	s.kinds[key] = kind
	return nil
}

// ListTimelineEvents returns stored events matching the query. The
// in-memory store ignores AIP filter expressions; tests that need them use
// the SQLite store.
func (s *Store) ListTimelineEvents(ctx context.Context, worldID string, query storage.EventQuery) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []event.Event
	for key, events := range s.events {
		if key.worldID != worldID {
			continue
		}
		if query.EntityID != "" && key.entityID != query.EntityID {
			continue
		}
		for _, evt := range events {
			if !query.From.IsZero() && evt.Timestamp.Before(query.From) {
				continue
			}
			if !query.To.IsZero() && evt.Timestamp.After(query.To) {
				continue
			}
			if query.MinSignificance > 0 && evt.Significance < query.MinSignificance {
				continue
			}
			out = append(out, evt.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// DeleteTimeline removes an entity's timeline.
func (s *Store) DeleteTimeline(ctx context.Context, worldID, entityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := timelineKey{worldID: worldID, entityID: entityID}
	delete(s.events, key)
	delete(s.kinds, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
