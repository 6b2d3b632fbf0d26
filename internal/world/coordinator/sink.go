package coordinator

import (
	"context"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/timeline"
)

// pendingEvent is an accepted event awaiting its durable append.
type pendingEvent struct {
	entityID string
	kind     event.EntityKind
	evt      event.Event
}

// eventSink is the engine's post-add hook. Every accepted event is
// buffered for the next durable flush and its cached views invalidated
// immediately, so stale recent-events and history blobs never outlive the
// mutation that made them stale.
type eventSink struct {
	coordinator *Coordinator
	worldID     string
	engine      *timeline.Engine
	pending     []pendingEvent
}

// EventAdded implements timeline.PostAddHook.
func (s *eventSink) EventAdded(entityID string, evt event.Event) {
	kind := event.EntityWorld
	if tl := s.engine.Timeline(entityID); tl != nil {
		kind = tl.Kind
	}
	s.pending = append(s.pending, pendingEvent{entityID: entityID, kind: kind, evt: evt})

	// The hook carries no context; invalidation is fire-and-forget
	// against the local cache backend.
	ctx := context.Background()
	if err := s.coordinator.cache.InvalidateRecentEvents(ctx, s.worldID, entityID); err != nil {
		s.coordinator.logger.Warn("recent-events invalidation failed",
			"world_id", s.worldID, "entity_id", entityID, "error", err)
	}
	if err := s.coordinator.cache.InvalidateHistory(ctx, s.worldID, string(kind), entityID); err != nil {
		s.coordinator.logger.Warn("history invalidation failed",
			"world_id", s.worldID, "entity_id", entityID, "error", err)
	}
}

// drain returns and clears the buffered events.
func (s *eventSink) drain() []pendingEvent {
	out := s.pending
	s.pending = nil
	return out
}

// requeue puts events back at the front of the buffer after a failed
// durable append, preserving append order for the retry.
func (s *eventSink) requeue(events []pendingEvent) {
	s.pending = append(events, s.pending...)
}
