// Package narrative defines the opaque input records supplied by the
// choice/narrative-generation collaborator. The engine treats them as data;
// generating their text is outside this repository.
package narrative

import "strings"

// Category coarsely classifies a decision for consequence propagation.
type Category string

const (
	// CategorySocial covers decisions about relationships and politics.
	CategorySocial Category = "social"
	// CategoryEnvironmental covers decisions that alter places and things.
	CategoryEnvironmental Category = "environmental"
	// CategoryEmotional covers decisions driven by feeling.
	CategoryEmotional Category = "emotional"
	// CategoryCreative covers decisions that invent or build.
	CategoryCreative Category = "creative"
)

// IsValid reports whether the category is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategorySocial, CategoryEnvironmental, CategoryEmotional, CategoryCreative:
		return true
	}
	return false
}

// Decision is one player or narrative choice handed to the engine.
type Decision struct {
	// ID uniquely identifies the decision.
	ID string
	// Category classifies the decision for propagation rules.
	Category Category
	// Title is a short headline for recorded events.
	Title string
	// Text is the decision's descriptive prose.
	Text string
	// Weight is the initial propagation strength, normally 1.0.
	Weight float64
	// ActorID optionally names the deciding entity.
	ActorID string
	// LocationID optionally names where the decision was made.
	LocationID string
	// EmotionalImpact is carried onto recorded events, -1..1.
	EmotionalImpact float64
}

// Validate checks the decision is usable as a propagation input.
func (d Decision) Validate() error {
	if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Text) == "" {
		return ErrEmptyDecision
	}
	if !d.Category.IsValid() {
		return ErrUnknownCategory
	}
	return nil
}
