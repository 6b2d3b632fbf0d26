package filter

import (
	"testing"
	"time"

	"github.com/loreweave/loreweave/internal/world/event"
)

func matcherFields(significance int, kind event.Kind, at time.Time) EventFields {
	return EventFields{
		EntityID:   "c1",
		EntityKind: event.EntityCharacter,
		Event: event.Event{
			ID:           "e1",
			Kind:         kind,
			Title:        "A door opens",
			LocationID:   "L1",
			Significance: significance,
			Timestamp:    at,
		},
	}
}

func TestParseEventPredicateEmptyMatchesAll(t *testing.T) {
	match, err := ParseEventPredicate("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if !match(matcherFields(1, event.KindAutomatic, time.Now())) {
		t.Fatalf("empty filter rejected an event")
	}
}

func TestParseEventPredicateComparisons(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fields := matcherFields(7, event.KindDecision, at)

	cases := []struct {
		filter string
		want   bool
	}{
		{`significance >= 5`, true},
		{`significance < 5`, false},
		{`kind = "narrative.decision"`, true},
		{`kind != "narrative.decision"`, false},
		{`entity_kind = "character" AND significance >= 5`, true},
		{`entity_kind = "location" OR significance >= 5`, true},
		{`entity_kind = "location" AND significance >= 5`, false},
		{`location_id = "L1"`, true},
		{`filtered = true`, false},
		{`ts >= timestamp("2026-03-01T00:00:00Z")`, true},
		{`ts < timestamp("2026-03-01T00:00:00Z")`, false},
	}
	for _, tc := range cases {
		match, err := ParseEventPredicate(tc.filter)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.filter, err)
		}
		if got := match(fields); got != tc.want {
			t.Fatalf("%q = %v, want %v", tc.filter, got, tc.want)
		}
	}
}

func TestParseEventPredicateUnknownField(t *testing.T) {
	if _, err := ParseEventPredicate(`mood = "ominous"`); err == nil {
		t.Fatalf("unknown field accepted")
	}
}
