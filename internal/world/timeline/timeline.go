// Package timeline maintains one append-only, chronologically validated
// event log per entity.
package timeline

import (
	"sort"
	"time"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/world/event"
)

var (
	// ErrEntityIDRequired indicates a missing entity id.
	ErrEntityIDRequired = apperrors.New(apperrors.CodeTimelineEntityIDEmpty, "entity id is required")
	// ErrTimelineMissing indicates no timeline exists for the entity.
	ErrTimelineMissing = apperrors.New(apperrors.CodeTimelineMissing, "no timeline exists for entity")
	// ErrTimestampFarFuture indicates an event timestamped beyond the allowed drift.
	ErrTimestampFarFuture = apperrors.New(apperrors.CodeEventTimestampFarFuture, "event timestamp is more than one day in the future")
	// ErrDuplicateEvent indicates an event with identical timestamp, title and description already exists.
	ErrDuplicateEvent = apperrors.New(apperrors.CodeEventDuplicate, "identical event already recorded at this timestamp")
	// ErrLocationConflict indicates a character cannot be in two places at the same timestamp.
	ErrLocationConflict = apperrors.New(apperrors.CodeEventLocationConflict, "character cannot be in two places at once")
)

// maxFutureDrift bounds how far ahead of current simulated time an event
// may be stamped.
const maxFutureDrift = 24 * time.Hour

// ContentHook inspects a newly accepted event and may substitute a filtered
// copy. A substitution marks the event Filtered; it never rejects it.
type ContentHook interface {
	FilterEvent(entityID string, evt event.Event) event.Event
}

// PostAddHook runs after an event has been stored. The coordinator uses it
// to invalidate cached recent-event and history blobs.
type PostAddHook interface {
	EventAdded(entityID string, evt event.Event)
}

// Timeline is the ordered event log exclusively owned by one entity.
type Timeline struct {
	// EntityID is the owning entity.
	EntityID string
	// Kind is the owning entity's kind.
	Kind event.EntityKind

	events []event.Event
}

// Events returns a copy of the stored events in chronological order.
func (t *Timeline) Events() []event.Event {
	if t == nil {
		return nil
	}
	out := make([]event.Event, len(t.events))
	for i, evt := range t.events {
		out[i] = evt.Clone()
	}
	return out
}

// Len returns the number of stored events.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// Engine owns the per-entity timelines of one world.
//
// Engine is not safe for concurrent use; the host serializes access per
// world, matching the coordinator's single-caller-per-world model.
type Engine struct {
	timelines map[string]*Timeline

	contentHook ContentHook
	postAdd     PostAddHook
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithContentHook installs the content-validation hook.
func WithContentHook(hook ContentHook) Option {
	return func(e *Engine) { e.contentHook = hook }
}

// WithPostAddHook installs the post-add hook.
func WithPostAddHook(hook PostAddHook) Option {
	return func(e *Engine) { e.postAdd = hook }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an empty timeline engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timelines: make(map[string]*Timeline),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// CreateTimeline creates a timeline for the entity. It is idempotent: an
// existing timeline is returned unchanged, keeping its events.
func (e *Engine) CreateTimeline(entityID string, kind event.EntityKind) (*Timeline, error) {
	if entityID == "" {
		return nil, ErrEntityIDRequired
	}
	if existing, ok := e.timelines[entityID]; ok {
		return existing, nil
	}
	tl := &Timeline{EntityID: entityID, Kind: kind}
	e.timelines[entityID] = tl
	return tl, nil
}

// Timeline returns the entity's timeline, or nil if none exists.
func (e *Engine) Timeline(entityID string) *Timeline {
	return e.timelines[entityID]
}

// Count returns the number of timelines.
func (e *Engine) Count() int {
	return len(e.timelines)
}

// EntityIDs returns the entity ids that own timelines, sorted.
func (e *Engine) EntityIDs() []string {
	ids := make([]string, 0, len(e.timelines))
	for id := range e.timelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteTimeline removes the entity's timeline. Removing a missing timeline
// is a no-op.
func (e *Engine) DeleteTimeline(entityID string) {
	delete(e.timelines, entityID)
}

// AddEvent validates and stores an event on the entity's timeline.
//
// An event is rejected when no timeline exists, when its timestamp is more
// than one day in the future, when an identical (timestamp, title,
// description) triple is already stored, or, for character entities, when
// an event at the same timestamp places the character somewhere else.
//
// On acceptance the event is inserted in chronological position, the
// optional content hook may substitute a filtered copy, and the post-add
// hook fires.
func (e *Engine) AddEvent(entityID string, evt event.Event) error {
	if entityID == "" {
		return ErrEntityIDRequired
	}
	tl, ok := e.timelines[entityID]
	if !ok {
		return ErrTimelineMissing
	}

	evt = evt.Normalize(e.now)
	if err := evt.Validate(); err != nil {
		return err
	}
	if err := e.checkChronology(tl, evt); err != nil {
		return err
	}

	if e.contentHook != nil {
		evt = e.contentHook.FilterEvent(entityID, evt)
	}

	tl.insert(evt.Clone())

	if e.postAdd != nil {
		e.postAdd.EventAdded(entityID, evt)
	}
	return nil
}

// checkChronology enforces the timeline invariants against stored events.
func (e *Engine) checkChronology(tl *Timeline, evt event.Event) error {
	if evt.Timestamp.After(e.now().UTC().Add(maxFutureDrift)) {
		return ErrTimestampFarFuture
	}
	for _, existing := range tl.events {
		if !existing.Timestamp.Equal(evt.Timestamp) {
			continue
		}
		if existing.Title == evt.Title && existing.Description == evt.Description {
			return ErrDuplicateEvent
		}
		if tl.Kind != event.EntityCharacter {
			continue
		}
		if existing.LocationID == "" || evt.LocationID == "" {
			continue
		}
		if existing.LocationID != evt.LocationID &&
			existing.Involves(tl.EntityID) && evt.Involves(tl.EntityID) {
			return ErrLocationConflict
		}
	}
	return nil
}

// insert places the event so timestamps stay non-decreasing. Events sharing
// a timestamp keep arrival order.
func (t *Timeline) insert(evt event.Event) {
	idx := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Timestamp.After(evt.Timestamp)
	})
	t.events = append(t.events, event.Event{})
	copy(t.events[idx+1:], t.events[idx:])
	t.events[idx] = evt
}
