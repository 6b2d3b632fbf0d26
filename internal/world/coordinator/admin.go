package coordinator

import (
	"context"
	"fmt"

	"github.com/loreweave/loreweave/internal/cache"
	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/platform/id"
	"github.com/loreweave/loreweave/internal/safety"
	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

// SetFlag sets a named world flag.
func (c *Coordinator) SetFlag(ctx context.Context, worldID, name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	mw.world.Flags[name] = value
	return c.persist(ctx, mw)
}

// ClearFlag removes a named world flag. Clearing a missing flag is a
// no-op and does not persist.
func (c *Coordinator) ClearFlag(ctx context.Context, worldID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	if _, ok := mw.world.Flags[name]; !ok {
		return nil
	}
	delete(mw.world.Flags, name)
	return c.persist(ctx, mw)
}

// ScheduleTask queues a task on the world's evolution schedule. Tasks
// fire when an evolution step crosses their due time.
func (c *Coordinator) ScheduleTask(ctx context.Context, worldID string, task state.ScheduledTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = id.NewEventID()
	}
	mw.world.ScheduleTask(task)
	return c.persist(ctx, mw)
}

// Pause stops evolution and mutation for a world until Resume.
func (c *Coordinator) Pause(ctx context.Context, worldID string) error {
	return c.setStatus(ctx, worldID, state.StatusPaused)
}

// Resume reactivates a paused or degraded world.
func (c *Coordinator) Resume(ctx context.Context, worldID string) error {
	return c.setStatus(ctx, worldID, state.StatusActive)
}

func (c *Coordinator) setStatus(ctx context.Context, worldID string, status state.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return err
	}
	if mw.world.Status == status {
		return nil
	}
	mw.world.Status = status
	return c.persist(ctx, mw)
}

// Export serializes a world and its timelines into a portable blob.
func (c *Coordinator) Export(ctx context.Context, worldID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return nil, err
	}

	timelines := make(map[string][]event.Event)
	kinds := make(map[string]event.EntityKind)
	for _, entityID := range mw.engine.EntityIDs() {
		tl := mw.engine.Timeline(entityID)
		timelines[entityID] = tl.Events()
		kinds[entityID] = tl.Kind
	}
	return state.Export(mw.world, timelines, kinds)
}

// Import materializes an exported world under its original id. Importing
// over an existing world is rejected.
func (c *Coordinator) Import(ctx context.Context, blob []byte) (string, error) {
	envelope, err := state.Import(blob)
	if err != nil {
		return "", err
	}
	worldID := envelope.World.ID

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Get(worldID) != nil {
		return "", ErrWorldExists
	}
	if _, err := c.store.LoadWorldState(ctx, worldID); err == nil {
		return "", ErrWorldExists
	}

	mw := c.manage(worldID, envelope.World)
	for entityID, events := range envelope.Timelines {
		mw.engine.Restore(entityID, envelope.TimelineKinds[entityID], events)
		for _, evt := range events {
			if err := c.store.AppendTimelineEvent(ctx, worldID, entityID, envelope.TimelineKinds[entityID], evt); err != nil {
				c.registry.Remove(worldID)
				return "", fmt.Errorf("import timeline %s: %w", entityID, err)
			}
		}
	}
	mw.sink.drain()

	imported := event.Event{
		Kind:         event.KindWorldImported,
		Title:        "The world returns",
		Description:  fmt.Sprintf("World %s imported with %d timelines.", worldID, len(envelope.Timelines)),
		Timestamp:    mw.world.CurrentTime,
		Significance: 6,
	}
	if err := mw.engine.AddEvent(worldID, imported); err != nil {
		c.logger.Warn("import event rejected", "world_id", worldID, "error", err)
	}

	if err := c.persist(ctx, mw); err != nil {
		c.registry.Remove(worldID)
		return "", err
	}
	c.logger.Info("world imported", "world_id", worldID, "timelines", len(envelope.Timelines))
	return worldID, nil
}

// Metrics is the debug snapshot of the coordinator's moving parts.
type Metrics struct {
	// ActiveWorlds counts resident worlds.
	ActiveWorlds int
	// TimelineCounts maps resident world id to its timeline count.
	TimelineCounts map[string]int
	// CacheStats maps cache concern to its counters.
	CacheStats map[string]cache.Stats
	// CacheVersions maps resident world id to its cache version.
	CacheVersions map[string]uint64
	// HealthScore is the current 0..1 probe score.
	HealthScore float64
	// FailingProbes lists consistently failing health probes.
	FailingProbes []string
}

// DebugMetrics returns the coordinator's debug counters.
func (c *Coordinator) DebugMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		ActiveWorlds:   c.registry.Len(),
		TimelineCounts: make(map[string]int),
		CacheStats:     c.cache.AllStats(),
		CacheVersions:  make(map[string]uint64),
		HealthScore:    c.recovery.Health().Score(),
		FailingProbes:  c.recovery.Health().ConsistentlyFailing(),
	}
	for _, worldID := range c.registry.IDs() {
		m.TimelineCounts[worldID] = c.registry.Get(worldID).engine.Count()
		m.CacheVersions[worldID] = c.cache.Version(worldID)
	}
	return m
}

// FilterContent runs the content-safety pass over arbitrary narrative
// text, returning the substituted text and whether it was safe.
func (c *Coordinator) FilterContent(worldID, text string, kind safety.ContentKind) (string, bool) {
	res := c.filter.Validate(text, kind, worldID)
	return res.Replacement, res.Safe
}

// RecordFeedback stores a judgement on a past filtering decision.
func (c *Coordinator) RecordFeedback(fb safety.Feedback) {
	c.filter.RecordFeedback(fb)
}

// TimelineEvents lists a world's stored events through the durable store,
// applying the query's filter expression server-side.
func (c *Coordinator) TimelineEvents(ctx context.Context, worldID string, query storage.EventQuery) ([]event.Event, error) {
	if worldID == "" {
		return nil, ErrWorldIDRequired
	}
	events, err := c.store.ListTimelineEvents(ctx, worldID, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePersistenceFailure, "list timeline events", err)
	}
	return events, nil
}

// Close releases the durable store.
func (c *Coordinator) Close() error {
	return c.store.Close()
}
