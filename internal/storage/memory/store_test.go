package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

var baseTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestSaveAndLoadWorldState(t *testing.T) {
	store := NewStore()
	world := state.NewWorld("w1", baseTime)
	world.Characters["c1"] = state.Attributes{"name": "Mira"}

	if err := store.SaveWorldState(context.Background(), world); err != nil {
		t.Fatalf("save world: %v", err)
	}

	// Mutations after save must not leak into the stored copy.
	world.Characters["c1"]["name"] = "Changed"

	loaded, err := store.LoadWorldState(context.Background(), "w1")
	if err != nil {
		t.Fatalf("load world: %v", err)
	}
	if loaded.Characters["c1"]["name"] != "Mira" {
		t.Fatal("stored world aliased caller's map")
	}
}

func TestLoadMissingWorldReturnsNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.LoadWorldState(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestAppendAndListTimelineEvents(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, title := range []string{"b", "a"} {
		evt := event.Event{
			ID:           title,
			Title:        title,
			Timestamp:    baseTime.Add(time.Duration(1-i) * time.Hour),
			Significance: 5 + i,
		}
		if err := store.AppendTimelineEvent(ctx, "w1", "c1", event.EntityCharacter, evt); err != nil {
			t.Fatalf("append %s: %v", title, err)
		}
	}

	events, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{EntityID: "c1"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Title != "a" || events[1].Title != "b" {
		t.Fatalf("order = [%s, %s], want [a, b]", events[0].Title, events[1].Title)
	}

	filtered, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{MinSignificance: 6})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Title != "a" {
		t.Fatalf("filtered = %v", filtered)
	}
}

func TestDeleteWorldRemovesTimelines(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveWorldState(ctx, state.NewWorld("w1", baseTime)); err != nil {
		t.Fatalf("save world: %v", err)
	}
	evt := event.Event{ID: "e1", Title: "x", Timestamp: baseTime, Significance: 1}
	if err := store.AppendTimelineEvent(ctx, "w1", "c1", event.EntityCharacter, evt); err != nil {
		t.Fatalf("append event: %v", err)
	}

	if err := store.DeleteWorld(ctx, "w1"); err != nil {
		t.Fatalf("delete world: %v", err)
	}
	events, err := store.ListTimelineEvents(ctx, "w1", storage.EventQuery{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}

func TestFailSaves(t *testing.T) {
	store := NewStore()
	store.FailSaves(true)
	err := store.SaveWorldState(context.Background(), state.NewWorld("w1", baseTime))
	if err == nil {
		t.Fatal("expected forced failure")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCache()
	now := baseTime
	cache.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if value, err := cache.Get(ctx, "k"); err != nil || value != "v" {
		t.Fatalf("get = %q, %v", value, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCacheDeleteMissingIsNoop(t *testing.T) {
	cache := NewCache()
	if err := cache.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
