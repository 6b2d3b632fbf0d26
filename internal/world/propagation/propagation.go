// Package propagation spreads the effect of one decision across the entity
// relationship graph with decaying strength.
package propagation

import (
	"fmt"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/narrative"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
	"github.com/loreweave/loreweave/internal/world/timeline"
)

// strengthFloor stops a branch from expanding once its computed strength
// drops below this value.
const strengthFloor = 0.1

// Default connection strengths by relationship edge. Character pairs use
// the stored relationship intensity when one exists.
const (
	defaultRelationshipStrength = 0.5
	proximityStrength           = 0.6
	ownershipStrength           = 0.8
)

var (
	// ErrNoOrigin indicates propagation was requested with no affected entities.
	ErrNoOrigin = apperrors.New(apperrors.CodePropagationNoOrigin, "at least one origin entity is required")
)

// EntityRef identifies one entity in the relationship graph.
type EntityRef struct {
	Kind event.EntityKind
	ID   string
}

// ConnectionFunc scores the edge between a visited entity and a discovered
// neighbor in [0,1].
type ConnectionFunc func(world *state.World, from, to EntityRef) float64

// Rule configures propagation for one decision category.
type Rule struct {
	// Decay is the per-hop attenuation factor.
	Decay float64
	// MaxHops bounds traversal depth.
	MaxHops int
	// Connection scores discovered edges. Nil uses DefaultConnection.
	Connection ConnectionFunc
}

// DefaultRules returns the rule table keyed by decision category.
func DefaultRules() map[narrative.Category]Rule {
	return map[narrative.Category]Rule{
		narrative.CategorySocial:        {Decay: 0.7, MaxHops: 3},
		narrative.CategoryEnvironmental: {Decay: 0.8, MaxHops: 4},
		narrative.CategoryEmotional:     {Decay: 0.6, MaxHops: 2},
		narrative.CategoryCreative:      {Decay: 0.5, MaxHops: 2},
	}
}

// DefaultConnection scores edges by relationship kind: stored relationship
// intensity between co-located characters, proximity for co-located
// entities, ownership for objects.
func DefaultConnection(world *state.World, from, to EntityRef) float64 {
	if from.Kind == event.EntityCharacter && to.Kind == event.EntityCharacter {
		if intensity, ok := relationshipIntensity(world, from.ID, to.ID); ok {
			return clip(intensity)
		}
		return defaultRelationshipStrength
	}
	if from.Kind == event.EntityObject || to.Kind == event.EntityObject {
		return ownershipStrength
	}
	return proximityStrength
}

func relationshipIntensity(world *state.World, fromID, toID string) (float64, bool) {
	attrs, ok := world.Characters[fromID]
	if !ok {
		return 0, false
	}
	relationships, ok := attrs["relationships"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch value := relationships[toID].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	}
	return 0, false
}

func clip(strength float64) float64 {
	if strength < 0 {
		return 0
	}
	if strength > 1 {
		return 1
	}
	return strength
}

// Recorded describes one event emitted during propagation.
type Recorded struct {
	Entity   EntityRef
	Hop      int
	Strength float64
	EventID  string
}

// Result summarizes one propagation run.
type Result struct {
	// Visited counts entities that received an event.
	Visited int
	// MaxHop is the deepest hop reached.
	MaxHop int
	// Recorded lists the emitted events in processing order.
	Recorded []Recorded
}

// Propagator walks the relationship graph recording consequences.
type Propagator struct {
	engine *timeline.Engine
	rules  map[narrative.Category]Rule
}

// NewPropagator creates a propagator recording through the given engine.
// A nil rule table uses DefaultRules.
func NewPropagator(engine *timeline.Engine, rules map[narrative.Category]Rule) *Propagator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Propagator{engine: engine, rules: rules}
}

type queueItem struct {
	entity   EntityRef
	strength float64
	hop      int
}

// Propagate runs a breadth-first traversal from the origins at strength
// 1.0 (scaled by the decision weight), emitting exactly one timeline event
// per visited entity. Each (kind, id) pair is processed at most once;
// the first dequeue wins. A branch stops expanding below the strength
// floor or past the rule's max hops.
func (p *Propagator) Propagate(world *state.World, decision narrative.Decision, origins []EntityRef) (Result, error) {
	if err := decision.Validate(); err != nil {
		return Result{}, err
	}
	if len(origins) == 0 {
		return Result{}, ErrNoOrigin
	}
	rule, ok := p.rules[decision.Category]
	if !ok {
		return Result{}, narrative.ErrUnknownCategory
	}
	connection := rule.Connection
	if connection == nil {
		connection = DefaultConnection
	}

	weight := decision.Weight
	if weight <= 0 {
		weight = 1.0
	}

	var queue []queueItem
	for _, origin := range origins {
		queue = append(queue, queueItem{entity: origin, strength: clip(weight), hop: 0})
	}

	visited := make(map[EntityRef]bool)
	result := Result{}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.entity] {
			continue
		}
		visited[item.entity] = true

		evt := p.consequenceEvent(world, decision, item)
		if _, err := p.engine.CreateTimeline(item.entity.ID, item.entity.Kind); err != nil {
			return result, fmt.Errorf("create timeline for %s: %w", item.entity.ID, err)
		}
		if err := p.engine.AddEvent(item.entity.ID, evt); err != nil {
			// Duplicate consequences can occur when the same decision is
			// replayed; the entity still counts as visited.
			if !apperrors.IsCode(err, apperrors.CodeEventDuplicate) {
				return result, fmt.Errorf("record consequence for %s: %w", item.entity.ID, err)
			}
		}

		result.Visited++
		if item.hop > result.MaxHop {
			result.MaxHop = item.hop
		}
		result.Recorded = append(result.Recorded, Recorded{
			Entity:   item.entity,
			Hop:      item.hop,
			Strength: item.strength,
			EventID:  evt.ID,
		})

		if item.hop >= rule.MaxHops {
			continue
		}
		for _, neighbor := range Neighbors(world, item.entity) {
			if visited[neighbor] {
				continue
			}
			next := clip(item.strength * rule.Decay * connection(world, item.entity, neighbor))
			if next < strengthFloor {
				continue
			}
			queue = append(queue, queueItem{entity: neighbor, strength: next, hop: item.hop + 1})
		}
	}

	return result, nil
}

func (p *Propagator) consequenceEvent(world *state.World, decision narrative.Decision, item queueItem) event.Event {
	kind := event.KindConsequence
	title := decision.Title
	description := decision.Text
	if item.hop > 0 {
		kind = event.KindIndirectConsequence
		title = fmt.Sprintf("%d-degree echo of %s", item.hop, decision.Title)
		description = fmt.Sprintf("An indirect consequence of %q reaches %s.", decision.Title, item.entity.ID)
	}

	significance := int(item.strength*10 + 0.5)
	if significance < 1 {
		significance = 1
	}
	if significance > 10 {
		significance = 10
	}

	locationID := decision.LocationID
	if item.entity.Kind == event.EntityCharacter {
		if loc := world.CharacterLocation(item.entity.ID); loc != "" {
			locationID = loc
		}
	}

	return event.Event{
		ID:              decision.ID + "-" + item.entity.ID,
		Kind:            kind,
		Title:           title,
		Description:     description,
		Participants:    []string{item.entity.ID},
		LocationID:      locationID,
		Timestamp:       world.CurrentTime,
		Significance:    significance,
		EmotionalImpact: clipImpact(decision.EmotionalImpact * item.strength),
		Tags:            []string{string(decision.Category)},
		Metadata: map[string]any{
			"decision_id": decision.ID,
			"hop":         item.hop,
			"strength":    item.strength,
		},
	}
}

func clipImpact(impact float64) float64 {
	if impact < -1 {
		return -1
	}
	if impact > 1 {
		return 1
	}
	return impact
}
