package event

import (
	"strings"
	"time"
)

// Kind identifies the kind of a timeline event.
type Kind string

// World lifecycle events.
const (
	// KindWorldCreated records the initialization of a world.
	KindWorldCreated Kind = "world.created"
	// KindWorldEvolved records an evolution tick advancing simulated time.
	KindWorldEvolved Kind = "world.evolved"
	// KindWorldImported records a world restored from an exported blob.
	KindWorldImported Kind = "world.imported"
)

// Entity events.
const (
	// KindEntityAdded records an entity joining the world.
	KindEntityAdded Kind = "entity.added"
	// KindEntityUpdated records updates to an entity's attributes.
	KindEntityUpdated Kind = "entity.updated"
	// KindEntityRemoved records an entity leaving the world.
	KindEntityRemoved Kind = "entity.removed"
)

// Narrative events.
const (
	// KindDecision records a player or narrative decision.
	KindDecision Kind = "narrative.decision"
	// KindConsequence records a direct consequence of a decision.
	KindConsequence Kind = "narrative.consequence"
	// KindIndirectConsequence records a rippled, attenuated consequence.
	KindIndirectConsequence Kind = "narrative.indirect_consequence"
	// KindAutomatic records an automatic event emitted during evolution.
	KindAutomatic Kind = "narrative.automatic"
	// KindScheduled records a scheduled task firing during evolution.
	KindScheduled Kind = "narrative.scheduled"
)

// EntityKind identifies the kind of entity that owns a timeline.
type EntityKind string

const (
	// EntityCharacter is a character entity.
	EntityCharacter EntityKind = "character"
	// EntityLocation is a location entity.
	EntityLocation EntityKind = "location"
	// EntityObject is an object entity.
	EntityObject EntityKind = "object"
	// EntityWorld is the world aggregate itself.
	EntityWorld EntityKind = "world"
)

// Event is an immutable record in a per-entity timeline.
//
// An event is mutated at most once after construction: a content-filter
// substitution may replace its text before first persistence, setting
// Filtered.
type Event struct {
	// ID uniquely identifies the event (ULID, assigned at creation).
	ID string
	// Kind identifies the kind of event.
	Kind Kind
	// Title is a short human-readable headline.
	Title string
	// Description is the narrative prose for the event.
	Description string
	// Participants lists the entity ids involved in the event.
	Participants []string
	// LocationID optionally names where the event took place.
	LocationID string
	// Timestamp is the simulated time the event occurred.
	Timestamp time.Time
	// Significance ranks the event from 1 (trivial) to 10 (world-changing).
	Significance int
	// EmotionalImpact ranges from -1 (devastating) to 1 (joyous).
	EmotionalImpact float64
	// Consequences lists free-form downstream effects.
	Consequences []string
	// Tags carries free-form labels for querying.
	Tags []string
	// Metadata holds event-specific data.
	Metadata map[string]any
	// Filtered reports whether a content-safety substitution replaced the
	// original text.
	Filtered bool
}

// IsValid reports whether the event kind is usable.
func (k Kind) IsValid() bool {
	return strings.TrimSpace(string(k)) != ""
}

// Domain returns the domain prefix of the event kind (e.g., "world",
// "entity", "narrative").
func (k Kind) Domain() string {
	for i, c := range k {
		if c == '.' {
			return string(k[:i])
		}
	}
	return string(k)
}

// Clone returns a deep copy of the event. Slices and the metadata map are
// copied so mutations of the clone never leak into stored timelines.
func (e Event) Clone() Event {
	cloned := e
	if e.Participants != nil {
		cloned.Participants = append([]string(nil), e.Participants...)
	}
	if e.Consequences != nil {
		cloned.Consequences = append([]string(nil), e.Consequences...)
	}
	if e.Tags != nil {
		cloned.Tags = append([]string(nil), e.Tags...)
	}
	if e.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(e.Metadata))
		for key, value := range e.Metadata {
			cloned.Metadata[key] = value
		}
	}
	return cloned
}

// Involves reports whether the entity id participates in the event.
func (e Event) Involves(entityID string) bool {
	for _, p := range e.Participants {
		if p == entityID {
			return true
		}
	}
	return false
}
