package state

import (
	"testing"
	"time"

	"github.com/loreweave/loreweave/internal/world/event"
)

func TestExportImportRoundTrip(t *testing.T) {
	world := newTestWorld()
	world.Flags["era"] = "second age"
	timelines := map[string][]event.Event{
		"c1": {{
			ID:           "evt-1",
			Kind:         event.KindDecision,
			Title:        "oath",
			Description:  "Mira swears the oath",
			Timestamp:    worldStart,
			Significance: 7,
		}},
	}
	kinds := map[string]event.EntityKind{"c1": event.EntityCharacter}

	blob, err := Export(world, timelines, kinds)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	envelope, err := Import(blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if envelope.World.ID != "w1" {
		t.Fatalf("world id = %q", envelope.World.ID)
	}
	if envelope.World.Flags["era"] != "second age" {
		t.Fatalf("flags = %v", envelope.World.Flags)
	}
	if len(envelope.Timelines["c1"]) != 1 || envelope.Timelines["c1"][0].Title != "oath" {
		t.Fatalf("timelines = %v", envelope.Timelines)
	}
	if envelope.TimelineKinds["c1"] != event.EntityCharacter {
		t.Fatalf("kinds = %v", envelope.TimelineKinds)
	}
}

func TestImportRejectsBadBlob(t *testing.T) {
	if _, err := Import([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid json")
	}
	if _, err := Import([]byte(`{"format_version": 99, "world": {"ID": "w"}}`)); err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if _, err := Import([]byte(`{"format_version": 1}`)); err == nil {
		t.Fatal("expected error for missing world")
	}
}

func TestExportRequiresWorld(t *testing.T) {
	if _, err := Export(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil world")
	}
}

func TestClonePreservesTimes(t *testing.T) {
	world := newTestWorld()
	world.CurrentTime = worldStart.Add(36 * time.Hour)
	cloned := world.Clone()
	if !cloned.CurrentTime.Equal(world.CurrentTime) {
		t.Fatalf("current time = %v, want %v", cloned.CurrentTime, world.CurrentTime)
	}
}
