package safety

import (
	"github.com/loreweave/loreweave/internal/world/event"
)

// EventHook adapts a Filter to the timeline content-validation hook. It
// screens event titles and descriptions on first write; unsafe text is
// substituted and the event marked Filtered, never rejected.
type EventHook struct {
	filter  *Filter
	worldID string
}

// NewEventHook builds a hook screening events for one world.
func NewEventHook(filter *Filter, worldID string) *EventHook {
	return &EventHook{filter: filter, worldID: worldID}
}

// FilterEvent screens the event's narrative fields.
func (h *EventHook) FilterEvent(entityID string, evt event.Event) event.Event {
	_ = entityID
	title := h.filter.Validate(evt.Title, ContentEventTitle, h.worldID)
	desc := h.filter.Validate(evt.Description, ContentEventDescription, h.worldID)
	if title.Safe && desc.Safe {
		return evt
	}
	evt.Title = title.Replacement
	evt.Description = desc.Replacement
	evt.Filtered = true
	return evt
}
