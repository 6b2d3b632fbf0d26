package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestGetCode(t *testing.T) {
	err := New(CodeEventDuplicate, "event already recorded")
	if GetCode(err) != CodeEventDuplicate {
		t.Fatalf("code = %v, want %v", GetCode(err), CodeEventDuplicate)
	}
	wrapped := fmt.Errorf("add event: %w", err)
	if GetCode(wrapped) != CodeEventDuplicate {
		t.Fatalf("wrapped code = %v, want %v", GetCode(wrapped), CodeEventDuplicate)
	}
	if GetCode(stderrors.New("plain")) != CodeUnknown {
		t.Fatal("expected CodeUnknown for plain error")
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(CodeWorldNotFound, "world %q is not active", "w1")
	if !IsCode(err, CodeWorldNotFound) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("expected IsCode mismatch for different code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodePersistenceFailure, "save world state", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to satisfy errors.Is")
	}
	if err.Error() != "save world state: disk full" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeEventLocationConflict, "entity cannot be in two places at once").
		WithMetadata(map[string]string{"entity_id": "c1"})
	meta := GetMetadata(err)
	if meta["entity_id"] != "c1" {
		t.Fatalf("metadata = %v", meta)
	}
}
