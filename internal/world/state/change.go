package state

import "time"

// ChangeOp identifies the type of a world change.
type ChangeOp string

const (
	// OpAddCharacter adds a character entity.
	OpAddCharacter ChangeOp = "character.add"
	// OpUpdateCharacter merges attributes into an existing character.
	OpUpdateCharacter ChangeOp = "character.update"
	// OpRemoveCharacter removes a character entity.
	OpRemoveCharacter ChangeOp = "character.remove"
	// OpAddLocation adds a location entity.
	OpAddLocation ChangeOp = "location.add"
	// OpUpdateLocation merges attributes into an existing location.
	OpUpdateLocation ChangeOp = "location.update"
	// OpRemoveLocation removes a location entity.
	OpRemoveLocation ChangeOp = "location.remove"
	// OpAddObject adds an object entity.
	OpAddObject ChangeOp = "object.add"
	// OpUpdateObject merges attributes into an existing object.
	OpUpdateObject ChangeOp = "object.update"
	// OpRemoveObject removes an object entity.
	OpRemoveObject ChangeOp = "object.remove"
	// OpSetFlag sets a named world flag.
	OpSetFlag ChangeOp = "flag.set"
	// OpAdvanceTime advances the world's simulated time.
	OpAdvanceTime ChangeOp = "time.advance"
)

// Change is one typed mutation in an apply-changes batch. Fields are
// interpreted per Op; unused fields are ignored.
type Change struct {
	// Op identifies the mutation.
	Op ChangeOp
	// EntityID targets an entity for entity ops.
	EntityID string
	// Attributes carries the attribute bag for add/update ops.
	Attributes Attributes
	// FlagName names the flag for OpSetFlag.
	FlagName string
	// FlagValue is the flag value for OpSetFlag.
	FlagValue any
	// Duration is the time step for OpAdvanceTime.
	Duration time.Duration
}

// Apply mutates the world with one change. It returns false when the change
// cannot apply: unknown op, missing target, or blank ids. Apply never
// partially mutates.
func (w *World) Apply(change Change) bool {
	switch change.Op {
	case OpAddCharacter:
		return addEntity(w.Characters, change)
	case OpUpdateCharacter:
		return updateEntity(w.Characters, change)
	case OpRemoveCharacter:
		return removeEntity(w.Characters, change)
	case OpAddLocation:
		return addEntity(w.Locations, change)
	case OpUpdateLocation:
		return updateEntity(w.Locations, change)
	case OpRemoveLocation:
		return removeEntity(w.Locations, change)
	case OpAddObject:
		return addEntity(w.Objects, change)
	case OpUpdateObject:
		return updateEntity(w.Objects, change)
	case OpRemoveObject:
		return removeEntity(w.Objects, change)
	case OpSetFlag:
		if change.FlagName == "" {
			return false
		}
		w.Flags[change.FlagName] = change.FlagValue
		return true
	case OpAdvanceTime:
		if change.Duration <= 0 {
			return false
		}
		w.CurrentTime = w.CurrentTime.Add(change.Duration)
		return true
	default:
		return false
	}
}

func addEntity(entities map[string]Attributes, change Change) bool {
	if change.EntityID == "" {
		return false
	}
	if _, exists := entities[change.EntityID]; exists {
		return false
	}
	attrs := change.Attributes.Clone()
	if attrs == nil {
		attrs = make(Attributes)
	}
	entities[change.EntityID] = attrs
	return true
}

func updateEntity(entities map[string]Attributes, change Change) bool {
	attrs, ok := entities[change.EntityID]
	if !ok {
		return false
	}
	for key, value := range change.Attributes {
		attrs[key] = value
	}
	return true
}

func removeEntity(entities map[string]Attributes, change Change) bool {
	if _, ok := entities[change.EntityID]; !ok {
		return false
	}
	delete(entities, change.EntityID)
	return true
}
