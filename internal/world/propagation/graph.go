package propagation

import (
	"sort"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

// Neighbors discovers the relationship edges of one entity: characters
// connect to their location, co-located characters and owned objects;
// locations connect to present characters, connected locations and placed
// objects; objects connect to their owner. Results are sorted for
// deterministic traversal order.
func Neighbors(world *state.World, entity EntityRef) []EntityRef {
	var out []EntityRef
	switch entity.Kind {
	case event.EntityCharacter:
		out = characterNeighbors(world, entity.ID)
	case event.EntityLocation:
		out = locationNeighbors(world, entity.ID)
	case event.EntityObject:
		out = objectNeighbors(world, entity.ID)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func characterNeighbors(world *state.World, id string) []EntityRef {
	var out []EntityRef
	location := world.CharacterLocation(id)
	if location != "" {
		if _, ok := world.Locations[location]; ok {
			out = append(out, EntityRef{Kind: event.EntityLocation, ID: location})
		}
		for otherID := range world.Characters {
			if otherID == id {
				continue
			}
			if world.CharacterLocation(otherID) == location {
				out = append(out, EntityRef{Kind: event.EntityCharacter, ID: otherID})
			}
		}
	}
	for objectID := range world.Objects {
		if world.ObjectOwner(objectID) == id {
			out = append(out, EntityRef{Kind: event.EntityObject, ID: objectID})
		}
	}
	return out
}

func locationNeighbors(world *state.World, id string) []EntityRef {
	var out []EntityRef
	for characterID := range world.Characters {
		if world.CharacterLocation(characterID) == id {
			out = append(out, EntityRef{Kind: event.EntityCharacter, ID: characterID})
		}
	}
	attrs, ok := world.Locations[id]
	if ok {
		for _, connected := range connectedLocations(attrs) {
			if _, exists := world.Locations[connected]; exists {
				out = append(out, EntityRef{Kind: event.EntityLocation, ID: connected})
			}
		}
	}
	for objectID, objAttrs := range world.Objects {
		if placed, _ := objAttrs["location"].(string); placed == id {
			out = append(out, EntityRef{Kind: event.EntityObject, ID: objectID})
		}
	}
	return out
}

func objectNeighbors(world *state.World, id string) []EntityRef {
	owner := world.ObjectOwner(id)
	if owner == "" {
		return nil
	}
	if _, ok := world.Characters[owner]; ok {
		return []EntityRef{{Kind: event.EntityCharacter, ID: owner}}
	}
	if _, ok := world.Locations[owner]; ok {
		return []EntityRef{{Kind: event.EntityLocation, ID: owner}}
	}
	return nil
}

// connectedLocations reads the "connections" attribute, accepting both
// []string and the []any produced by JSON decoding.
func connectedLocations(attrs state.Attributes) []string {
	switch value := attrs["connections"].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
