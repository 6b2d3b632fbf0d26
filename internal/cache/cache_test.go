package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/loreweave/loreweave/internal/storage/memory"
)

func TestVersionIncrementsByExactlyOne(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()

	if v := cache.Version("w1"); v != 0 {
		t.Fatalf("initial version = %d, want 0", v)
	}
	for want := uint64(1); want <= 3; want++ {
		if got := cache.IncrementVersion(ctx, "w1"); got != want {
			t.Fatalf("version = %d, want %d", got, want)
		}
	}
	if v := cache.Version("w2"); v != 0 {
		t.Fatalf("other world version = %d, want 0", v)
	}
}

func TestWorldStateHitMissCounters(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()

	if _, ok, err := cache.GetWorldState(ctx, "w1"); err != nil || ok {
		t.Fatalf("get = %v, %v, want miss", ok, err)
	}
	if err := cache.SetWorldState(ctx, "w1", `{"id":"w1"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	blob, ok, err := cache.GetWorldState(ctx, "w1")
	if err != nil || !ok {
		t.Fatalf("get = %v, %v, want hit", ok, err)
	}
	if blob != `{"id":"w1"}` {
		t.Fatalf("blob = %q", blob)
	}

	stats := cache.StatsFor(ConcernState)
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", stats)
	}
}

func TestInvalidateWorldStateCounts(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()

	if err := cache.SetWorldState(ctx, "w1", "blob"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.InvalidateWorldState(ctx, "w1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.GetWorldState(ctx, "w1"); ok {
		t.Fatal("expected miss after invalidation")
	}
	if stats := cache.StatsFor(ConcernState); stats.Invalidations != 1 {
		t.Fatalf("invalidations = %d, want 1", stats.Invalidations)
	}
}

func TestHistoryVariantsInvalidatedAsEnumeration(t *testing.T) {
	backend := memory.NewCache()
	cache := NewVersioned(backend)
	ctx := context.Background()

	for _, detail := range DetailLevels {
		for _, window := range DayWindows {
			blob := fmt.Sprintf("%s-%d", detail, window)
			if err := cache.SetHistory(ctx, "w1", "character", "c1", detail, window, blob); err != nil {
				t.Fatalf("set history %s: %v", blob, err)
			}
		}
	}
	// A variant outside the enumeration survives invalidation and ages out
	// by TTL instead.
	if err := cache.SetHistory(ctx, "w1", "character", "c1", "exotic", 3, "blob"); err != nil {
		t.Fatalf("set exotic history: %v", err)
	}

	if err := cache.InvalidateHistory(ctx, "w1", "character", "c1"); err != nil {
		t.Fatalf("invalidate history: %v", err)
	}

	for _, detail := range DetailLevels {
		for _, window := range DayWindows {
			if _, ok, _ := cache.GetHistory(ctx, "w1", "character", "c1", detail, window); ok {
				t.Fatalf("expected %s/%d invalidated", detail, window)
			}
		}
	}
	if _, ok, _ := cache.GetHistory(ctx, "w1", "character", "c1", "exotic", 3); !ok {
		t.Fatal("expected exotic variant untouched")
	}
}

func TestRecentEventsRoundTrip(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()

	if err := cache.SetRecentEvents(ctx, "w1", "c1", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := cache.GetRecentEvents(ctx, "w1", "c1"); !ok {
		t.Fatal("expected hit")
	}
	if err := cache.InvalidateRecentEvents(ctx, "w1", "c1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.GetRecentEvents(ctx, "w1", "c1"); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestInvalidateWorldClearsAllConcerns(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()

	cache.SetWorldState(ctx, "w1", "state")
	cache.SetFlags(ctx, "w1", "flags")
	cache.SetRecentEvents(ctx, "w1", "c1", "recent")
	cache.SetHistory(ctx, "w1", "character", "c1", "summary", 0, "history")

	if err := cache.InvalidateWorld(ctx, "w1", map[string]string{"c1": "character"}); err != nil {
		t.Fatalf("invalidate world: %v", err)
	}
	if _, ok, _ := cache.GetWorldState(ctx, "w1"); ok {
		t.Fatal("state not invalidated")
	}
	if _, ok, _ := cache.GetFlags(ctx, "w1"); ok {
		t.Fatal("flags not invalidated")
	}
	if _, ok, _ := cache.GetRecentEvents(ctx, "w1", "c1"); ok {
		t.Fatal("recent events not invalidated")
	}
	if _, ok, _ := cache.GetHistory(ctx, "w1", "character", "c1", "summary", 0); ok {
		t.Fatal("history not invalidated")
	}
}

func TestAllStatsSnapshot(t *testing.T) {
	cache := NewVersioned(memory.NewCache())
	ctx := context.Background()
	cache.GetWorldState(ctx, "w1")
	cache.GetFlags(ctx, "w1")

	stats := cache.AllStats()
	if stats[ConcernState].Misses != 1 || stats[ConcernFlags].Misses != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
