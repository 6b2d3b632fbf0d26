package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/loreweave/loreweave/internal/world/event"
)

// exportFormatVersion identifies the envelope layout. Bump on breaking
// changes to keep old blobs importable by earlier releases only.
const exportFormatVersion = 1

// Envelope is the serialized form of a world plus its timelines, used by
// the admin export/import surface.
type Envelope struct {
	// FormatVersion identifies the envelope layout.
	FormatVersion int `json:"format_version"`
	// ExportedAt is the wall-clock export time.
	ExportedAt time.Time `json:"exported_at"`
	// World is the aggregate snapshot.
	World *World `json:"world"`
	// Timelines maps entity id to its stored events.
	Timelines map[string][]event.Event `json:"timelines,omitempty"`
	// TimelineKinds maps entity id to the owning entity kind.
	TimelineKinds map[string]event.EntityKind `json:"timeline_kinds,omitempty"`
}

// Export serializes a world and its timelines to a JSON blob.
func Export(world *World, timelines map[string][]event.Event, kinds map[string]event.EntityKind) ([]byte, error) {
	if world == nil {
		return nil, fmt.Errorf("world is required")
	}
	envelope := Envelope{
		FormatVersion: exportFormatVersion,
		ExportedAt:    time.Now().UTC(),
		World:         world.Clone(),
		Timelines:     timelines,
		TimelineKinds: kinds,
	}
	blob, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal world envelope: %w", err)
	}
	return blob, nil
}

// Import parses a JSON export blob back into an envelope.
func Import(blob []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal world envelope: %w", err)
	}
	if envelope.FormatVersion != exportFormatVersion {
		return Envelope{}, fmt.Errorf("unsupported export format version %d", envelope.FormatVersion)
	}
	if envelope.World == nil {
		return Envelope{}, fmt.Errorf("export envelope has no world")
	}
	return envelope, nil
}
