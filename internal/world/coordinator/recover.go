package coordinator

import (
	"context"
	"fmt"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/recovery"
	"github.com/loreweave/loreweave/internal/world/state"
)

// CreateCheckpoint snapshots a world and its timelines onto the recovery
// manager's checkpoint stack. Call it before risky operations.
func (c *Coordinator) CreateCheckpoint(ctx context.Context, worldID, label string) (recovery.Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return recovery.Checkpoint{}, err
	}

	timelines := make(map[string][]event.Event)
	kinds := make(map[string]event.EntityKind)
	for _, entityID := range mw.engine.EntityIDs() {
		tl := mw.engine.Timeline(entityID)
		timelines[entityID] = tl.Events()
		kinds[entityID] = tl.Kind
	}
	return c.recovery.CreateCheckpoint(worldID, label, mw.world, timelines, kinds)
}

// Rollback restores a world to a checkpoint; an empty id selects the most
// recent one.
func (c *Coordinator) Rollback(ctx context.Context, worldID, checkpointID string) (recovery.Checkpoint, error) {
	return c.recovery.Rollback(ctx, worldID, checkpointID)
}

// Recover classifies a failure and runs recovery strategies against the
// affected world. The metadata may carry strategy inputs such as
// "checkpoint_label".
func (c *Coordinator) Recover(ctx context.Context, worldID, component string, cause error, metadata map[string]string) (recovery.Report, error) {
	return c.recovery.Recover(ctx, cause, recovery.Context{
		WorldID:   worldID,
		Component: component,
		Metadata:  metadata,
	})
}

// recoveryHooks binds the recovery strategies to the coordinator's
// subsystems. Hooks take c.mu themselves; recovery entry points must not
// hold it.
func (c *Coordinator) recoveryHooks() recovery.Hooks {
	return recovery.Hooks{
		RestoreCheckpoint: c.restoreCheckpoint,
		RebuildTimelines:  c.rebuildTimelines,
		InvalidateCaches:  c.invalidateCaches,
		Degrade:           c.degrade,
		RepairData:        c.repairData,
		EnterFallback:     c.enterFallback,
		Restart:           c.restartWorld,
	}
}

// restoreCheckpoint swaps a snapshot back in as the live world and
// persists it.
func (c *Coordinator) restoreCheckpoint(ctx context.Context, cp recovery.Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw := c.registry.Get(cp.WorldID)
	if mw == nil {
		mw = c.manage(cp.WorldID, cp.World.Clone())
	} else {
		mw.world = cp.World.Clone()
	}

	snaps := make(map[string]timelineSnapshot, len(cp.Timelines))
	for entityID, events := range cp.Timelines {
		snaps[entityID] = timelineSnapshot{kind: cp.TimelineKinds[entityID], events: events}
	}
	restoreTimelines(mw.engine, snaps)
	mw.sink.drain()

	// The durable store keeps events appended after the snapshot; rewrite
	// the restored timelines so it converges with the live state.
	for entityID, snap := range snaps {
		if err := c.store.DeleteTimeline(ctx, cp.WorldID, entityID); err != nil {
			return fmt.Errorf("reset stored timeline %s: %w", entityID, err)
		}
		for _, evt := range snap.events {
			if err := c.store.AppendTimelineEvent(ctx, cp.WorldID, entityID, snap.kind, evt); err != nil {
				return fmt.Errorf("rewrite stored timeline %s: %w", entityID, err)
			}
		}
	}

	// persist re-bumps the aggregate version; offset it so the restored
	// world matches the snapshot field for field.
	mw.world.Version--
	if err := c.persist(ctx, mw); err != nil {
		return err
	}
	c.logger.Info("checkpoint restored", "world_id", cp.WorldID, "checkpoint_id", cp.ID)
	return nil
}

// rebuildTimelines drops low-significance past events from every timeline
// and rewrites the durable copies, keeping only the story's load-bearing
// history.
func (c *Coordinator) rebuildTimelines(ctx context.Context, worldID string, minSignificance int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}

	removed := 0
	for _, entityID := range mw.engine.EntityIDs() {
		removed += mw.engine.Prune(entityID, 0, minSignificance)
		tl := mw.engine.Timeline(entityID)
		if err := c.store.DeleteTimeline(ctx, worldID, entityID); err != nil {
			return fmt.Errorf("reset stored timeline %s: %w", entityID, err)
		}
		for _, evt := range tl.Events() {
			if err := c.store.AppendTimelineEvent(ctx, worldID, entityID, tl.Kind, evt); err != nil {
				return fmt.Errorf("rewrite stored timeline %s: %w", entityID, err)
			}
		}
	}
	mw.sink.drain()

	if err := c.persist(ctx, mw); err != nil {
		return err
	}
	c.logger.Info("timelines rebuilt", "world_id", worldID,
		"min_significance", minSignificance, "events_removed", removed)
	return nil
}

func (c *Coordinator) invalidateCaches(ctx context.Context, worldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entities := make(map[string]string)
	if mw := c.registry.Get(worldID); mw != nil {
		for id, kind := range entityKinds(mw.world) {
			entities[id] = string(kind)
		}
	}
	return c.cache.InvalidateWorld(ctx, worldID, entities)
}

// degrade reduces the world to degraded operation: status flips, a flag
// marks it, and richer features key off both.
func (c *Coordinator) degrade(ctx context.Context, worldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	mw.world.Status = state.StatusDegraded
	mw.world.Flags["degraded"] = true
	return c.persist(ctx, mw)
}

// repairData clears dangling attribute references: characters placed in
// missing locations and objects owned by missing characters.
func (c *Coordinator) repairData(ctx context.Context, worldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	w := mw.world

	repaired := 0
	for id, attrs := range w.Characters {
		if loc, ok := attrs["location"].(string); ok && loc != "" {
			if _, exists := w.Locations[loc]; !exists {
				delete(attrs, "location")
				repaired++
				c.logger.Info("cleared dangling location", "world_id", worldID, "character_id", id, "location_id", loc)
			}
		}
	}
	for id, attrs := range w.Objects {
		if owner, ok := attrs["owner"].(string); ok && owner != "" {
			if _, exists := w.Characters[owner]; !exists {
				delete(attrs, "owner")
				repaired++
				c.logger.Info("cleared dangling owner", "world_id", worldID, "object_id", id, "owner_id", owner)
			}
		}
	}
	if repaired == 0 {
		return nil
	}
	return c.persist(ctx, mw)
}

func (c *Coordinator) enterFallback(ctx context.Context, worldID, component string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	if component == "" {
		component = "engine"
	}
	mw.world.Flags["fallback:"+component] = true
	return c.persist(ctx, mw)
}

// restartWorld drops the resident copy and reloads last-known-good state
// from the durable store.
func (c *Coordinator) restartWorld(ctx context.Context, worldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Remove(worldID)
	_, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	c.logger.Warn("world restarted from durable state", "world_id", worldID)
	return nil
}
