package state

import (
	"testing"
	"time"
)

var worldStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestWorld() *World {
	w := NewWorld("w1", worldStart)
	w.Characters["c1"] = Attributes{"name": "Mira", "location": "L1"}
	w.Locations["L1"] = Attributes{"name": "The Hollow"}
	w.Objects["o1"] = Attributes{"name": "lantern", "owner": "c1"}
	return w
}

func TestCloneIsIndependent(t *testing.T) {
	world := newTestWorld()
	world.Flags["season"] = "winter"

	cloned := world.Clone()
	cloned.Characters["c1"]["name"] = "Renamed"
	cloned.Flags["season"] = "spring"

	if world.Characters["c1"]["name"] != "Mira" {
		t.Fatal("clone mutated original character")
	}
	if world.Flags["season"] != "winter" {
		t.Fatal("clone mutated original flags")
	}
}

func TestEntityLookup(t *testing.T) {
	world := newTestWorld()
	if _, kind, ok := world.Entity("c1"); !ok || kind != "character" {
		t.Fatalf("entity c1 kind = %q, ok = %v", kind, ok)
	}
	if _, kind, ok := world.Entity("L1"); !ok || kind != "location" {
		t.Fatalf("entity L1 kind = %q, ok = %v", kind, ok)
	}
	if _, kind, ok := world.Entity("o1"); !ok || kind != "object" {
		t.Fatalf("entity o1 kind = %q, ok = %v", kind, ok)
	}
	if _, _, ok := world.Entity("ghost"); ok {
		t.Fatal("expected missing entity")
	}
}

func TestScheduleTaskKeepsDueOrder(t *testing.T) {
	world := newTestWorld()
	world.ScheduleTask(ScheduledTask{ID: "t2", Due: worldStart.Add(48 * time.Hour)})
	world.ScheduleTask(ScheduledTask{ID: "t1", Due: worldStart.Add(24 * time.Hour)})
	world.ScheduleTask(ScheduledTask{ID: "t3", Due: worldStart.Add(72 * time.Hour)})

	if world.Schedule[0].ID != "t1" || world.Schedule[1].ID != "t2" || world.Schedule[2].ID != "t3" {
		t.Fatalf("schedule order = %v", world.Schedule)
	}
}

func TestDueTasksDrainsOnlyDue(t *testing.T) {
	world := newTestWorld()
	world.ScheduleTask(ScheduledTask{ID: "t1", Due: worldStart.Add(24 * time.Hour)})
	world.ScheduleTask(ScheduledTask{ID: "t2", Due: worldStart.Add(48 * time.Hour)})

	due := world.DueTasks(worldStart.Add(24 * time.Hour))
	if len(due) != 1 || due[0].ID != "t1" {
		t.Fatalf("due = %v, want [t1]", due)
	}
	if len(world.Schedule) != 1 || world.Schedule[0].ID != "t2" {
		t.Fatalf("remaining = %v, want [t2]", world.Schedule)
	}
}

func TestApplyChanges(t *testing.T) {
	cases := []struct {
		name   string
		change Change
		want   bool
	}{
		{"add character", Change{Op: OpAddCharacter, EntityID: "c2", Attributes: Attributes{"name": "Joren"}}, true},
		{"add duplicate character", Change{Op: OpAddCharacter, EntityID: "c1"}, false},
		{"update character", Change{Op: OpUpdateCharacter, EntityID: "c1", Attributes: Attributes{"mood": "wary"}}, true},
		{"update missing character", Change{Op: OpUpdateCharacter, EntityID: "ghost"}, false},
		{"remove object", Change{Op: OpRemoveObject, EntityID: "o1"}, true},
		{"remove missing object", Change{Op: OpRemoveObject, EntityID: "o9"}, false},
		{"set flag", Change{Op: OpSetFlag, FlagName: "siege", FlagValue: true}, true},
		{"set unnamed flag", Change{Op: OpSetFlag}, false},
		{"advance time", Change{Op: OpAdvanceTime, Duration: time.Hour}, true},
		{"advance by zero", Change{Op: OpAdvanceTime}, false},
		{"unknown op", Change{Op: ChangeOp("weather.set")}, false},
	}

	world := newTestWorld()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := world.Apply(tc.change); got != tc.want {
				t.Fatalf("apply = %v, want %v", got, tc.want)
			}
		})
	}

	if world.Characters["c1"]["mood"] != "wary" {
		t.Fatal("update did not merge attributes")
	}
	if !world.CurrentTime.Equal(worldStart.Add(time.Hour)) {
		t.Fatalf("current time = %v", world.CurrentTime)
	}
	if world.Flags["siege"] != true {
		t.Fatal("flag not set")
	}
}

func TestCharacterLocationAndObjectOwner(t *testing.T) {
	world := newTestWorld()
	if loc := world.CharacterLocation("c1"); loc != "L1" {
		t.Fatalf("location = %q, want L1", loc)
	}
	if owner := world.ObjectOwner("o1"); owner != "c1" {
		t.Fatalf("owner = %q, want c1", owner)
	}
	if loc := world.CharacterLocation("ghost"); loc != "" {
		t.Fatalf("location = %q, want empty", loc)
	}
}
