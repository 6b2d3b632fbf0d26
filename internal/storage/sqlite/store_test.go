package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "loreweave.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestMillisHelpers(t *testing.T) {
	value := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	round := fromMillis(toMillis(value))
	if !round.Equal(value) {
		t.Fatalf("round trip = %v, want %v", round, value)
	}
}

func TestSaveLoadWorld(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	w := state.NewWorld("w1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	w.Characters["c1"] = state.Attributes{"location": "L1"}
	w.Flags["season"] = "spring"
	w.Version = 3
	if err := store.SaveWorldState(ctx, w); err != nil {
		t.Fatalf("SaveWorldState: %v", err)
	}

	loaded, err := store.LoadWorldState(ctx, "w1")
	if err != nil {
		t.Fatalf("LoadWorldState: %v", err)
	}
	if loaded.ID != "w1" || loaded.Version != 3 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Flags["season"] != "spring" {
		t.Fatalf("flags = %v", loaded.Flags)
	}
	if loaded.Characters["c1"]["location"] != "L1" {
		t.Fatalf("characters = %v", loaded.Characters)
	}

	// Upsert replaces.
	w.Flags["season"] = "summer"
	w.Version = 4
	if err := store.SaveWorldState(ctx, w); err != nil {
		t.Fatalf("SaveWorldState again: %v", err)
	}
	loaded, err = store.LoadWorldState(ctx, "w1")
	if err != nil {
		t.Fatalf("LoadWorldState: %v", err)
	}
	if loaded.Flags["season"] != "summer" || loaded.Version != 4 {
		t.Fatalf("upserted = %+v", loaded)
	}
}

func TestLoadMissingWorld(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.LoadWorldState(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListWorldIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"w2", "w1"} {
		if err := store.SaveWorldState(ctx, state.NewWorld(id, time.Now())); err != nil {
			t.Fatalf("SaveWorldState %s: %v", id, err)
		}
	}
	ids, err := store.ListWorldIDs(ctx)
	if err != nil {
		t.Fatalf("ListWorldIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "w1" || ids[1] != "w2" {
		t.Fatalf("ids = %v, want [w1 w2]", ids)
	}
}

func seedEvents(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []struct {
		entityID string
		kind     event.EntityKind
		evt      event.Event
	}{
		{"c1", event.EntityCharacter, event.Event{ID: "e1", Kind: event.KindDecision, Title: "Opens the vault", Significance: 8, Timestamp: base}},
		{"c1", event.EntityCharacter, event.Event{ID: "e2", Kind: event.KindAutomatic, Title: "A quiet morning", Significance: 2, Timestamp: base.Add(time.Hour)}},
		{"L1", event.EntityLocation, event.Event{ID: "e3", Kind: event.KindAutomatic, Title: "The weather turns", Significance: 3, Timestamp: base.Add(2 * time.Hour)}},
	}
	for _, row := range events {
		if err := store.AppendTimelineEvent(ctx, "w1", row.entityID, row.kind, row.evt); err != nil {
			t.Fatalf("AppendTimelineEvent %s: %v", row.evt.ID, err)
		}
	}
}

func TestListTimelineEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedEvents(t, store)

	all, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{})
	if err != nil {
		t.Fatalf("ListTimelineEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != "e1" || all[2].ID != "e3" {
		t.Fatalf("order = [%s %s %s], want chronological", all[0].ID, all[1].ID, all[2].ID)
	}

	c1, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{EntityID: "c1"})
	if err != nil {
		t.Fatalf("ListTimelineEvents entity: %v", err)
	}
	if len(c1) != 2 {
		t.Fatalf("len(c1) = %d, want 2", len(c1))
	}

	significant, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{MinSignificance: 5})
	if err != nil {
		t.Fatalf("ListTimelineEvents significance: %v", err)
	}
	if len(significant) != 1 || significant[0].ID != "e1" {
		t.Fatalf("significant = %+v, want [e1]", significant)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ranged, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{
		From: base.Add(30 * time.Minute),
		To:   base.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatalf("ListTimelineEvents range: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != "e2" {
		t.Fatalf("ranged = %+v, want [e2]", ranged)
	}

	limited, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{Limit: 2})
	if err != nil {
		t.Fatalf("ListTimelineEvents limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited = %d, want 2", len(limited))
	}
}

func TestListTimelineEventsWithFilterExpression(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedEvents(t, store)

	events, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{
		Filter: `entity_kind = "character" AND significance >= 5`,
	})
	if err != nil {
		t.Fatalf("ListTimelineEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Fatalf("filtered = %+v, want [e1]", events)
	}

	if _, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{Filter: `mood = "grim"`}); err == nil {
		t.Fatal("expected error for unknown filter field")
	}
}

func TestDeleteTimeline(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedEvents(t, store)

	if err := store.DeleteTimeline(ctx, "w1", "c1"); err != nil {
		t.Fatalf("DeleteTimeline: %v", err)
	}
	remaining, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{})
	if err != nil {
		t.Fatalf("ListTimelineEvents: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "e3" {
		t.Fatalf("remaining = %+v, want [e3]", remaining)
	}
}

func TestDeleteWorld(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.SaveWorldState(ctx, state.NewWorld("w1", time.Now())); err != nil {
		t.Fatalf("SaveWorldState: %v", err)
	}
	seedEvents(t, store)

	if err := store.DeleteWorld(ctx, "w1"); err != nil {
		t.Fatalf("DeleteWorld: %v", err)
	}
	if _, err := store.LoadWorldState(ctx, "w1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	events, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{})
	if err != nil {
		t.Fatalf("ListTimelineEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loreweave.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening applies no migration twice.
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
