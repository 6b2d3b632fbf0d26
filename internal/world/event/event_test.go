package event

import (
	"testing"
	"time"
)

func TestKindDomain(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindWorldCreated, "world"},
		{KindEntityAdded, "entity"},
		{KindIndirectConsequence, "narrative"},
		{Kind("bare"), "bare"},
	}
	for _, tc := range cases {
		if got := tc.kind.Domain(); got != tc.want {
			t.Fatalf("domain(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestKindIsValid(t *testing.T) {
	if !KindDecision.IsValid() {
		t.Fatal("expected valid kind")
	}
	if Kind("  ").IsValid() {
		t.Fatal("expected blank kind to be invalid")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := Event{
		ID:           "evt-1",
		Kind:         KindDecision,
		Participants: []string{"c1"},
		Tags:         []string{"festival"},
		Metadata:     map[string]any{"hop": 0},
	}
	cloned := original.Clone()
	cloned.Participants[0] = "c2"
	cloned.Metadata["hop"] = 3

	if original.Participants[0] != "c1" {
		t.Fatal("clone mutated original participants")
	}
	if original.Metadata["hop"] != 0 {
		t.Fatal("clone mutated original metadata")
	}
}

func TestValidateBounds(t *testing.T) {
	valid := Event{Significance: 5, EmotionalImpact: 0.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (Event{Significance: 0}).Validate(); err != ErrInvalidSignificance {
		t.Fatalf("error = %v, want %v", err, ErrInvalidSignificance)
	}
	if err := (Event{Significance: 11}).Validate(); err != ErrInvalidSignificance {
		t.Fatalf("error = %v, want %v", err, ErrInvalidSignificance)
	}
	if err := (Event{Significance: 5, EmotionalImpact: 1.5}).Validate(); err != ErrInvalidEmotionalImpact {
		t.Fatalf("error = %v, want %v", err, ErrInvalidEmotionalImpact)
	}
}

func TestNormalizeDefaultsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	evt := Event{}.Normalize(func() time.Time { return fixed })
	if !evt.Timestamp.Equal(fixed.Truncate(time.Millisecond)) {
		t.Fatalf("timestamp = %v, want %v", evt.Timestamp, fixed.Truncate(time.Millisecond))
	}
}

func TestNormalizeAssignsID(t *testing.T) {
	evt := Event{}.Normalize(nil)
	if evt.ID == "" {
		t.Fatal("expected a generated id")
	}
	kept := Event{ID: "e1"}.Normalize(nil)
	if kept.ID != "e1" {
		t.Fatalf("ID = %q, want e1", kept.ID)
	}
}

func TestInvolves(t *testing.T) {
	evt := Event{Participants: []string{"c1", "c2"}}
	if !evt.Involves("c2") {
		t.Fatal("expected participant match")
	}
	if evt.Involves("c3") {
		t.Fatal("expected no match")
	}
}
