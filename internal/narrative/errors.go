package narrative

import apperrors "github.com/loreweave/loreweave/internal/errors"

var (
	// ErrEmptyDecision indicates a decision with no title or text.
	ErrEmptyDecision = apperrors.New(apperrors.CodeDecisionEmpty, "decision has no title or text")
	// ErrUnknownCategory indicates a decision category outside the rule table.
	ErrUnknownCategory = apperrors.New(apperrors.CodePropagationUnknownCategory, "unknown decision category")
)
