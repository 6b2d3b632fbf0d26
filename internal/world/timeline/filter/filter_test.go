package filter

import (
	"strings"
	"testing"
	"time"
)

func TestParseEventFilterEmpty(t *testing.T) {
	cond, err := ParseEventFilter("   ")
	if err != nil {
		t.Fatalf("parse empty filter: %v", err)
	}
	if cond.Clause != "" || len(cond.Params) != 0 {
		t.Fatalf("condition = %+v, want empty", cond)
	}
}

func TestParseEventFilterEquality(t *testing.T) {
	cond, err := ParseEventFilter(`entity_id = "c1"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "entity_id = ?" {
		t.Fatalf("clause = %q", cond.Clause)
	}
	if len(cond.Params) != 1 || cond.Params[0] != "c1" {
		t.Fatalf("params = %v", cond.Params)
	}
}

func TestParseEventFilterConjunction(t *testing.T) {
	cond, err := ParseEventFilter(`entity_kind = "character" AND significance >= 5`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(entity_kind = ? AND significance >= ?)" {
		t.Fatalf("clause = %q", cond.Clause)
	}
	if len(cond.Params) != 2 {
		t.Fatalf("params = %v", cond.Params)
	}
}

func TestParseEventFilterTimestamp(t *testing.T) {
	cond, err := ParseEventFilter(`ts >= timestamp("2026-03-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "timestamp >= ?" {
		t.Fatalf("clause = %q", cond.Clause)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if cond.Params[0] != want {
		t.Fatalf("param = %v, want %d", cond.Params[0], want)
	}
}

func TestParseEventFilterUnknownField(t *testing.T) {
	_, err := ParseEventFilter(`mood = "grim"`)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "mood") {
		t.Fatalf("error = %v, want field name", err)
	}
}
