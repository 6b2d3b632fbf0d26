package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/loreweave/loreweave/internal/world/recovery"
	"github.com/loreweave/loreweave/internal/world/state"
)

func TestRecoverCacheCorruption(t *testing.T) {
	rig := newTestRig(t, DefaultConfig())
	ctx := context.Background()
	if _, err := rig.coordinator.Initialize(ctx, "w1", testSeed()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	report, err := rig.coordinator.Recover(ctx, "w1", "cache",
		errors.New("cache entry checksum mismatch"), nil)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if report.Kind != recovery.KindCacheCorruption {
		t.Fatalf("Kind = %v, want cache corruption", report.Kind)
	}
	if report.Succeeded != recovery.StrategyCacheInvalidation {
		t.Fatalf("Succeeded = %v, want cache invalidation", report.Succeeded)
	}

	// The cached world-state blob is gone until the next mutation.
	if _, ok, _ := rig.cache.GetWorldState(ctx, "w1"); ok {
		t.Fatal("world-state blob survived cache invalidation")
	}
}

func TestRecoverDegradesUnderOptionalPersistence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptionalPersistence = true
	rig := newTestRig(t, cfg)
	ctx := context.Background()
	if _, err := rig.coordinator.Initialize(ctx, "w1", testSeed()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	rig.store.FailSaves(true)

	report, err := rig.coordinator.Recover(ctx, "w1", "storage",
		errors.New("failed to save world snapshot"), nil)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if report.Kind != recovery.KindPersistenceFailure {
		t.Fatalf("Kind = %v, want persistence failure", report.Kind)
	}
	if report.Succeeded != recovery.StrategyGracefulDegradation {
		t.Fatalf("Succeeded = %v, want graceful degradation", report.Succeeded)
	}

	w, err := rig.coordinator.World(ctx, "w1")
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	if w.Status != state.StatusDegraded {
		t.Fatalf("Status = %v, want degraded", w.Status)
	}
	if w.Flags["degraded"] != true {
		t.Fatalf("degraded flag = %v", w.Flags["degraded"])
	}
}

func TestRecoverTimelineCorruptionRollsBack(t *testing.T) {
	rig := newTestRig(t, DefaultConfig())
	ctx := context.Background()
	if _, err := rig.coordinator.Initialize(ctx, "w1", testSeed()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := rig.coordinator.CreateCheckpoint(ctx, "w1", "stable"); err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if _, err := rig.coordinator.ApplyChanges(ctx, "w1", []state.Change{
		{Op: state.OpSetFlag, FlagName: "storm", FlagValue: true},
	}); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	report, err := rig.coordinator.Recover(ctx, "w1", "timeline",
		errors.New("timeline events out of order"), nil)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if report.Succeeded != recovery.StrategyRollbackToCheckpoint {
		t.Fatalf("Succeeded = %v, want rollback", report.Succeeded)
	}

	w, err := rig.coordinator.World(ctx, "w1")
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	if _, ok := w.Flags["storm"]; ok {
		t.Fatal("storm flag survived rollback")
	}
}
