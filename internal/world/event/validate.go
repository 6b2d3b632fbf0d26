package event

import (
	"time"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/platform/id"
)

var (
	// ErrInvalidSignificance indicates a significance outside 1..10.
	ErrInvalidSignificance = apperrors.New(apperrors.CodeEventInvalidSignificance, "significance must be between 1 and 10")
	// ErrInvalidEmotionalImpact indicates an emotional impact outside -1..1.
	ErrInvalidEmotionalImpact = apperrors.New(apperrors.CodeEventInvalidImpact, "emotional impact must be between -1 and 1")
)

// Validate checks construction-time field bounds. Chronological checks are
// the timeline's concern, not the event's.
func (e Event) Validate() error {
	if e.Significance < 1 || e.Significance > 10 {
		return ErrInvalidSignificance
	}
	if e.EmotionalImpact < -1 || e.EmotionalImpact > 1 {
		return ErrInvalidEmotionalImpact
	}
	return nil
}

// Normalize fills defaults for optional fields: a missing id gets a fresh
// ULID, and a zero timestamp becomes now, truncated to millisecond
// precision like persisted events.
func (e Event) Normalize(now func() time.Time) Event {
	if now == nil {
		now = time.Now
	}
	if e.ID == "" {
		e.ID = id.NewEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Millisecond)
	return e
}
