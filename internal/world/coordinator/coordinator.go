// Package coordinator owns the in-memory registry of active worlds and
// exposes the engine's mutation surface. It wires the timeline engine,
// versioned cache, durable store, content filter, and recovery manager
// together and enforces the persistence discipline: registry, cache
// version, cached blobs, durable store, in that order.
//
// The coordinator serializes access per world behind one mutex. The
// intended call pattern is one evolution tick or one player action at a
// time per world id.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loreweave/loreweave/internal/cache"
	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/narrative"
	"github.com/loreweave/loreweave/internal/safety"
	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/propagation"
	"github.com/loreweave/loreweave/internal/world/recovery"
	"github.com/loreweave/loreweave/internal/world/state"
	"github.com/loreweave/loreweave/internal/world/timeline"
)

var (
	// ErrWorldIDRequired indicates a missing world id.
	ErrWorldIDRequired = apperrors.New(apperrors.CodeWorldIDEmpty, "world id is required")
	// ErrWorldExists indicates initialization of an already known world.
	ErrWorldExists = apperrors.New(apperrors.CodeWorldExists, "world already exists")
	// ErrWorldNotFound indicates the world is neither resident nor stored.
	ErrWorldNotFound = apperrors.New(apperrors.CodeWorldNotFound, "world not found")
	// ErrWorldPaused indicates a mutation on a paused world.
	ErrWorldPaused = apperrors.New(apperrors.CodeWorldStatusDisallows, "world is paused")
)

const defaultMaxActiveWorlds = 100

// Config tunes the coordinator.
type Config struct {
	// MaxActiveWorlds bounds the in-memory registry.
	MaxActiveWorlds int
	// OptionalPersistence tolerates durable-store failures: mutations
	// succeed on cache alone and the failure is logged.
	OptionalPersistence bool
	// EventsPerDay caps automatic events emitted per simulated day.
	EventsPerDay int
	// EmissionRates gives the per-tick automatic-event probability per
	// entity kind. Missing kinds never fire.
	EmissionRates map[event.EntityKind]float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxActiveWorlds: defaultMaxActiveWorlds,
		EventsPerDay:    10,
		EmissionRates: map[event.EntityKind]float64{
			event.EntityCharacter: 0.15,
			event.EntityLocation:  0.08,
			event.EntityObject:    0.03,
		},
	}
}

// Coordinator is the root component of the engine.
type Coordinator struct {
	mu sync.Mutex

	cfg      Config
	registry *Registry
	cache    *cache.Versioned
	store    storage.Store
	filter   *safety.Filter
	recovery *recovery.Manager
	rules    map[narrative.Category]propagation.Rule

	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// Option adjusts coordinator construction.
type Option func(*Coordinator)

// WithClock injects a wall-clock source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPropagationRules overrides the propagation rule table.
func WithPropagationRules(rules map[narrative.Category]propagation.Rule) Option {
	return func(c *Coordinator) {
		if rules != nil {
			c.rules = rules
		}
	}
}

// New builds a coordinator over the given cache, durable store, and
// content filter. The recovery manager is constructed internally with its
// strategies bound to the coordinator.
func New(cfg Config, versioned *cache.Versioned, store storage.Store, filter *safety.Filter, opts ...Option) *Coordinator {
	if cfg.MaxActiveWorlds <= 0 {
		cfg.MaxActiveWorlds = defaultMaxActiveWorlds
	}
	if cfg.EventsPerDay <= 0 {
		cfg.EventsPerDay = DefaultConfig().EventsPerDay
	}
	if cfg.EmissionRates == nil {
		cfg.EmissionRates = DefaultConfig().EmissionRates
	}

	c := &Coordinator{
		cfg:      cfg,
		registry: NewRegistry(cfg.MaxActiveWorlds),
		cache:    versioned,
		store:    store,
		filter:   filter,
		rules:    propagation.DefaultRules(),
		tracer:   otel.Tracer("loreweave/coordinator"),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recovery = recovery.NewManager(c.recoveryHooks(), recovery.WithClock(c.now), recovery.WithLogger(c.logger))
	return c
}

// Recovery exposes the coordinator's recovery manager.
func (c *Coordinator) Recovery() *recovery.Manager { return c.recovery }

// Seed describes the initial population of a world.
type Seed struct {
	// Start is the initial simulated time. Zero means the current wall
	// clock.
	Start time.Time
	// Characters, Locations, and Objects map entity id to attributes.
	Characters map[string]state.Attributes
	Locations  map[string]state.Attributes
	Objects    map[string]state.Attributes
	// Flags are the world's initial named flags.
	Flags map[string]any
}

// Initialize creates a world from a seed: the aggregate, one timeline per
// entity plus the world's own, the world.created event, and the first
// persisted snapshot.
func (c *Coordinator) Initialize(ctx context.Context, worldID string, seed Seed) (*state.World, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.Initialize",
		trace.WithAttributes(attribute.String("world.id", worldID)))
	defer span.End()

	if worldID == "" {
		return nil, ErrWorldIDRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Get(worldID) != nil {
		return nil, ErrWorldExists
	}
	if _, err := c.store.LoadWorldState(ctx, worldID); err == nil {
		return nil, ErrWorldExists
	}

	start := seed.Start
	if start.IsZero() {
		start = c.now().UTC()
	}
	w := state.NewWorld(worldID, start)
	for id, attrs := range seed.Characters {
		w.Characters[id] = attrs.Clone()
	}
	for id, attrs := range seed.Locations {
		w.Locations[id] = attrs.Clone()
	}
	for id, attrs := range seed.Objects {
		w.Objects[id] = attrs.Clone()
	}
	for name, value := range seed.Flags {
		w.Flags[name] = value
	}

	mw := c.manage(worldID, w)
	for id, kind := range entityKinds(w) {
		if _, err := mw.engine.CreateTimeline(id, kind); err != nil {
			return nil, fmt.Errorf("create timeline for %s: %w", id, err)
		}
	}
	if _, err := mw.engine.CreateTimeline(worldID, event.EntityWorld); err != nil {
		return nil, fmt.Errorf("create world timeline: %w", err)
	}

	created := event.Event{
		Kind:         event.KindWorldCreated,
		Title:        "The world takes shape",
		Description:  fmt.Sprintf("World %s begins with %d characters, %d locations, %d objects.", worldID, len(w.Characters), len(w.Locations), len(w.Objects)),
		Timestamp:    start,
		Significance: 10,
	}
	if err := mw.engine.AddEvent(worldID, created); err != nil {
		return nil, fmt.Errorf("record creation event: %w", err)
	}

	if err := c.persist(ctx, mw); err != nil {
		c.registry.Remove(worldID)
		return nil, err
	}
	c.logger.Info("world initialized", "world_id", worldID,
		"characters", len(w.Characters), "locations", len(w.Locations), "objects", len(w.Objects))
	return w.Clone(), nil
}

// manage registers a world with a fresh engine and event sink. The
// engine's clock tracks the world's simulated time, so the far-future
// bound holds relative to where the story is, not the wall clock.
func (c *Coordinator) manage(worldID string, w *state.World) *managedWorld {
	sink := &eventSink{coordinator: c, worldID: worldID}
	mw := &managedWorld{
		world:     w,
		sink:      sink,
		updatedAt: c.now().UTC(),
	}
	engine := timeline.NewEngine(
		timeline.WithContentHook(safety.NewEventHook(c.filter, worldID)),
		timeline.WithPostAddHook(sink),
		timeline.WithClock(func() time.Time { return mw.world.CurrentTime }),
	)
	mw.engine = engine
	sink.engine = engine
	if evicted := c.registry.Put(worldID, mw); evicted != "" {
		c.logger.Info("world evicted from registry", "world_id", evicted)
	}
	return mw
}

// World returns a copy of the world aggregate, loading it from the
// durable store when it is not resident.
func (c *Coordinator) World(ctx context.Context, worldID string) (*state.World, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return nil, err
	}
	return mw.world.Clone(), nil
}

// resident returns the managed world, rehydrating it from the durable
// store on a registry miss. Callers hold c.mu.
func (c *Coordinator) resident(ctx context.Context, worldID string) (*managedWorld, error) {
	if worldID == "" {
		return nil, ErrWorldIDRequired
	}
	if mw := c.registry.Get(worldID); mw != nil {
		return mw, nil
	}

	w, err := c.store.LoadWorldState(ctx, worldID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrWorldNotFound
		}
		return nil, fmt.Errorf("load world %s: %w", worldID, err)
	}

	mw := c.manage(worldID, w)
	kinds := entityKinds(w)
	kinds[worldID] = event.EntityWorld
	for id, kind := range kinds {
		events, err := c.store.ListTimelineEvents(ctx, worldID, storage.EventQuery{EntityID: id})
		if err != nil {
			return nil, fmt.Errorf("load timeline %s: %w", id, err)
		}
		mw.engine.Restore(id, kind, events)
	}
	// Restored events are already durable; drop what the post-add hook
	// buffered during rehydration.
	mw.sink.drain()
	c.logger.Info("world rehydrated", "world_id", worldID, "timelines", mw.engine.Count())
	return mw, nil
}

func entityKinds(w *state.World) map[string]event.EntityKind {
	kinds := make(map[string]event.EntityKind, len(w.Characters)+len(w.Locations)+len(w.Objects))
	for id := range w.Characters {
		kinds[id] = event.EntityCharacter
	}
	for id := range w.Locations {
		kinds[id] = event.EntityLocation
	}
	for id := range w.Objects {
		kinds[id] = event.EntityObject
	}
	return kinds
}

// ApplyResult reports the outcome of an apply-changes batch.
type ApplyResult struct {
	// Applied counts the changes that took effect.
	Applied int
	// Failed lists the zero-based indexes of rejected changes.
	Failed []int
}

// applyOptions carries the apply-changes mode.
type applyOptions struct {
	allOrNothing bool
}

// ApplyOption adjusts an apply-changes call.
type ApplyOption func(*applyOptions)

// AllOrNothing makes the batch transactional: any rejected change rolls
// the whole batch back. The default is best-effort, where each change
// applies independently.
func AllOrNothing() ApplyOption {
	return func(o *applyOptions) { o.allOrNothing = true }
}

// ApplyChanges applies a batch of typed changes to a world. By default the
// batch is best-effort: each change is applied independently and the
// result counts the successes, partial application included. Successful
// batches persist once at the end.
func (c *Coordinator) ApplyChanges(ctx context.Context, worldID string, changes []state.Change, opts ...ApplyOption) (ApplyResult, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.ApplyChanges",
		trace.WithAttributes(
			attribute.String("world.id", worldID),
			attribute.Int("changes.count", len(changes))))
	defer span.End()

	var options applyOptions
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return ApplyResult{}, err
	}
	if mw.world.Status == state.StatusPaused {
		return ApplyResult{}, ErrWorldPaused
	}

	var before *state.World
	var beforeTimelines map[string]timelineSnapshot
	if options.allOrNothing {
		before = mw.world.Clone()
		beforeTimelines = snapshotTimelines(mw.engine)
	}

	var result ApplyResult
	for i, change := range changes {
		if !mw.world.Apply(change) {
			result.Failed = append(result.Failed, i)
			if options.allOrNothing {
				mw.world = before
				restoreTimelines(mw.engine, beforeTimelines)
				mw.sink.drain()
				return ApplyResult{Failed: []int{i}}, apperrors.Newf(apperrors.CodeUnknown,
					"change %d (%s) rejected, batch rolled back", i, change.Op)
			}
			continue
		}
		result.Applied++
		c.recordChange(mw, change)
	}

	if result.Applied > 0 {
		if err := c.persist(ctx, mw); err != nil {
			return result, err
		}
	}
	return result, nil
}

// recordChange writes the audit event for an entity mutation. Audit
// failures are logged, never fatal: the state change already applied.
func (c *Coordinator) recordChange(mw *managedWorld, change state.Change) {
	var kind event.Kind
	var entityKind event.EntityKind
	switch change.Op {
	case state.OpAddCharacter, state.OpAddLocation, state.OpAddObject:
		kind = event.KindEntityAdded
	case state.OpUpdateCharacter, state.OpUpdateLocation, state.OpUpdateObject:
		kind = event.KindEntityUpdated
	case state.OpRemoveCharacter, state.OpRemoveLocation, state.OpRemoveObject:
		kind = event.KindEntityRemoved
	default:
		return
	}
	switch change.Op {
	case state.OpAddCharacter, state.OpUpdateCharacter, state.OpRemoveCharacter:
		entityKind = event.EntityCharacter
	case state.OpAddLocation, state.OpUpdateLocation, state.OpRemoveLocation:
		entityKind = event.EntityLocation
	default:
		entityKind = event.EntityObject
	}

	if kind == event.KindEntityAdded {
		if _, err := mw.engine.CreateTimeline(change.EntityID, entityKind); err != nil {
			c.logger.Warn("audit timeline create failed", "entity_id", change.EntityID, "error", err)
			return
		}
	}

	evt := event.Event{
		Kind:         kind,
		Title:        fmt.Sprintf("%s %s", change.EntityID, auditVerb(kind)),
		Description:  fmt.Sprintf("%s applied to %s", change.Op, change.EntityID),
		Timestamp:    mw.world.CurrentTime,
		Significance: 3,
	}
	if err := mw.engine.AddEvent(change.EntityID, evt); err != nil {
		c.logger.Warn("audit event rejected", "entity_id", change.EntityID, "error", err)
	}
}

func auditVerb(kind event.Kind) string {
	switch kind {
	case event.KindEntityAdded:
		return "enters the world"
	case event.KindEntityRemoved:
		return "leaves the world"
	default:
		return "changes"
	}
}

// RecordDecision filters a decision's narrative text, then propagates its
// consequences across the relationship graph, recording one event per
// touched entity. The origin is the deciding actor, or the decision's
// location when no actor is named.
func (c *Coordinator) RecordDecision(ctx context.Context, worldID string, decision narrative.Decision) (propagation.Result, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.RecordDecision",
		trace.WithAttributes(
			attribute.String("world.id", worldID),
			attribute.String("decision.category", string(decision.Category))))
	defer span.End()

	if err := decision.Validate(); err != nil {
		return propagation.Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return propagation.Result{}, err
	}
	if mw.world.Status == state.StatusPaused {
		return propagation.Result{}, ErrWorldPaused
	}

	// Content pass runs once, before first commit. Unsafe text is
	// substituted, recorded, and never retried.
	if res := c.filter.Validate(decision.Text, safety.ContentDecisionText, worldID); !res.Safe {
		decision.Text = res.Replacement
	}
	if res := c.filter.Validate(decision.Title, safety.ContentDecisionText, worldID); !res.Safe {
		decision.Title = res.Replacement
	}

	var origins []propagation.EntityRef
	if decision.ActorID != "" {
		if _, ok := mw.world.Characters[decision.ActorID]; ok {
			origins = append(origins, propagation.EntityRef{Kind: event.EntityCharacter, ID: decision.ActorID})
		}
	}
	if len(origins) == 0 && decision.LocationID != "" {
		if _, ok := mw.world.Locations[decision.LocationID]; ok {
			origins = append(origins, propagation.EntityRef{Kind: event.EntityLocation, ID: decision.LocationID})
		}
	}

	propagator := propagation.NewPropagator(mw.engine, c.rules)
	result, err := propagator.Propagate(mw.world, decision, origins)
	if err != nil {
		return propagation.Result{}, err
	}

	if err := c.persist(ctx, mw); err != nil {
		return result, err
	}
	c.logger.Info("decision recorded", "world_id", worldID,
		"decision_id", decision.ID, "entities_touched", result.Visited, "max_hop", result.MaxHop)
	return result, nil
}

// persist runs the write discipline for a mutated world: bump the
// aggregate version and registry recency, increment the cache version,
// write the state and flags blobs to cache, flush buffered events and the
// aggregate to the durable store. Durable failures are tolerated and
// logged under optional persistence, fatal otherwise. Callers hold c.mu.
func (c *Coordinator) persist(ctx context.Context, mw *managedWorld) error {
	w := mw.world
	w.Version++
	w.UpdatedAt = c.now().UTC()
	c.registry.Touch(w.ID, w.UpdatedAt)

	// Advisory only: the counter also advances when the durable write
	// below fails, so it is not a save count.
	c.cache.IncrementVersion(ctx, w.ID)

	stateBlob, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode world state: %w", err)
	}
	if err := c.cache.SetWorldState(ctx, w.ID, string(stateBlob)); err != nil {
		c.logger.Warn("cache state write failed", "world_id", w.ID, "error", err)
	}
	flagsBlob, err := json.Marshal(w.Flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	if err := c.cache.SetFlags(ctx, w.ID, string(flagsBlob)); err != nil {
		c.logger.Warn("cache flags write failed", "world_id", w.ID, "error", err)
	}

	if err := c.flushDurable(ctx, mw); err != nil {
		if c.cfg.OptionalPersistence {
			c.logger.Warn("durable write failed, continuing on cache",
				"world_id", w.ID, "error", err)
			return nil
		}
		return apperrors.Wrap(apperrors.CodePersistenceFailure, "persist world "+w.ID, err)
	}
	return nil
}

// timelineSnapshot captures one timeline for transactional rollback.
type timelineSnapshot struct {
	kind   event.EntityKind
	events []event.Event
}

func snapshotTimelines(engine *timeline.Engine) map[string]timelineSnapshot {
	snaps := make(map[string]timelineSnapshot)
	for _, id := range engine.EntityIDs() {
		tl := engine.Timeline(id)
		snaps[id] = timelineSnapshot{kind: tl.Kind, events: tl.Events()}
	}
	return snaps
}

func restoreTimelines(engine *timeline.Engine, snaps map[string]timelineSnapshot) {
	for _, id := range engine.EntityIDs() {
		if _, ok := snaps[id]; !ok {
			engine.DeleteTimeline(id)
		}
	}
	for id, snap := range snaps {
		engine.Restore(id, snap.kind, snap.events)
	}
}

func (c *Coordinator) flushDurable(ctx context.Context, mw *managedWorld) error {
	pending := mw.sink.drain()
	for i, p := range pending {
		if err := c.store.AppendTimelineEvent(ctx, mw.world.ID, p.entityID, p.kind, p.evt); err != nil {
			// Events not yet appended go back in the buffer so the
			// next successful persist replays them.
			mw.sink.requeue(pending[i:])
			return fmt.Errorf("append event %s: %w", p.evt.ID, err)
		}
	}
	if err := c.store.SaveWorldState(ctx, mw.world); err != nil {
		return fmt.Errorf("save world state: %w", err)
	}
	return nil
}
