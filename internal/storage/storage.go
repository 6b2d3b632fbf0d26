package storage

import (
	"context"
	"errors"
	"time"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// WorldStore persists world aggregates.
type WorldStore interface {
	SaveWorldState(ctx context.Context, world *state.World) error
	LoadWorldState(ctx context.Context, id string) (*state.World, error)
	ListWorldIDs(ctx context.Context) ([]string, error)
	DeleteWorld(ctx context.Context, id string) error
}

// EventQuery filters a timeline event listing.
type EventQuery struct {
	// EntityID restricts results to one entity's timeline when set.
	EntityID string
	// Filter is an optional AIP-160 filter expression over event fields.
	Filter string
	// From and To bound the timestamp range when non-zero.
	From time.Time
	To   time.Time
	// MinSignificance drops events below the threshold when > 0.
	MinSignificance int
	// Limit bounds the result size when > 0.
	Limit int
}

// EventStore persists timeline events.
type EventStore interface {
	AppendTimelineEvent(ctx context.Context, worldID, entityID string, kind event.EntityKind, evt event.Event) error
	ListTimelineEvents(ctx context.Context, worldID string, query EventQuery) ([]event.Event, error)
	DeleteTimeline(ctx context.Context, worldID, entityID string) error
}

// Store is the full durable-store surface the coordinator persists through.
type Store interface {
	WorldStore
	EventStore
	Close() error
}
