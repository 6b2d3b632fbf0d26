package narrative

import (
	"testing"

	apperrors "github.com/loreweave/loreweave/internal/errors"
)

func TestValidateAcceptsTitledDecision(t *testing.T) {
	d := Decision{ID: "d1", Category: CategorySocial, Title: "Open the tavern"}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsEmptyDecision(t *testing.T) {
	d := Decision{ID: "d1", Category: CategorySocial, Title: "   ", Text: ""}
	err := d.Validate()
	if !apperrors.IsCode(err, apperrors.CodeDecisionEmpty) {
		t.Fatalf("Validate err = %v, want %s", err, apperrors.CodeDecisionEmpty)
	}
	// An empty decision is a caller mistake, not a propagation outcome.
	if apperrors.IsCode(err, apperrors.CodePropagationNoOrigin) {
		t.Fatalf("empty decision shares the no-origin code")
	}
}

func TestValidateRejectsUnknownCategory(t *testing.T) {
	d := Decision{ID: "d1", Category: "martial", Title: "Draw swords"}
	if err := d.Validate(); !apperrors.IsCode(err, apperrors.CodePropagationUnknownCategory) {
		t.Fatalf("Validate err = %v, want %s", err, apperrors.CodePropagationUnknownCategory)
	}
}
