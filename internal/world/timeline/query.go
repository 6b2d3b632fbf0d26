package timeline

import (
	"sort"
	"time"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/timeline/filter"
)

// Query operations are pure reads; every returned event is a copy.

// EventsInRange returns the entity's events with from <= timestamp <= to.
func (e *Engine) EventsInRange(entityID string, from, to time.Time) []event.Event {
	tl := e.timelines[entityID]
	if tl == nil {
		return nil
	}
	var out []event.Event
	for _, evt := range tl.events {
		if evt.Timestamp.Before(from) || evt.Timestamp.After(to) {
			continue
		}
		out = append(out, evt.Clone())
	}
	return out
}

// EventsBySignificance returns events with significance >= min.
func (e *Engine) EventsBySignificance(entityID string, min int) []event.Event {
	tl := e.timelines[entityID]
	if tl == nil {
		return nil
	}
	var out []event.Event
	for _, evt := range tl.events {
		if evt.Significance >= min {
			out = append(out, evt.Clone())
		}
	}
	return out
}

// EventsByKind returns events of the given kind.
func (e *Engine) EventsByKind(entityID string, kind event.Kind) []event.Event {
	tl := e.timelines[entityID]
	if tl == nil {
		return nil
	}
	var out []event.Event
	for _, evt := range tl.events {
		if evt.Kind == kind {
			out = append(out, evt.Clone())
		}
	}
	return out
}

// RecentEvents returns events from the last N days of simulated time,
// measured against the engine clock.
func (e *Engine) RecentEvents(entityID string, days int) []event.Event {
	cutoff := e.now().UTC().AddDate(0, 0, -days)
	tl := e.timelines[entityID]
	if tl == nil {
		return nil
	}
	var out []event.Event
	for _, evt := range tl.events {
		if evt.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, evt.Clone())
	}
	return out
}

// TopBySignificance returns up to n events ordered by descending
// significance; ties keep chronological order.
func (e *Engine) TopBySignificance(entityID string, n int) []event.Event {
	tl := e.timelines[entityID]
	if tl == nil || n <= 0 {
		return nil
	}
	sorted := tl.Events()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Significance > sorted[j].Significance
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Query returns the entity's events matching an AIP-160 filter expression,
// e.g. `kind = "narrative.decision" AND significance >= 5`.
func (e *Engine) Query(entityID, filterExpr string) ([]event.Event, error) {
	match, err := filter.ParseEventPredicate(filterExpr)
	if err != nil {
		return nil, err
	}
	tl := e.timelines[entityID]
	if tl == nil {
		return nil, nil
	}
	var out []event.Event
	for _, evt := range tl.events {
		if match(filter.EventFields{EntityID: entityID, EntityKind: tl.Kind, Event: evt}) {
			out = append(out, evt.Clone())
		}
	}
	return out, nil
}

// Prune drops events older than keepDays unless their significance is at
// least minSignificance. It returns the number of removed events.
func (e *Engine) Prune(entityID string, keepDays, minSignificance int) int {
	tl := e.timelines[entityID]
	if tl == nil {
		return 0
	}
	cutoff := e.now().UTC().AddDate(0, 0, -keepDays)
	kept := tl.events[:0]
	removed := 0
	for _, evt := range tl.events {
		if evt.Timestamp.Before(cutoff) && evt.Significance < minSignificance {
			removed++
			continue
		}
		kept = append(kept, evt)
	}
	tl.events = kept
	return removed
}

// Restore replaces the entity's timeline contents, creating the timeline
// if needed. Events are re-sorted to restore the chronological invariant;
// checkpoints captured them in order so this is normally a no-op sort.
func (e *Engine) Restore(entityID string, kind event.EntityKind, events []event.Event) {
	tl, ok := e.timelines[entityID]
	if !ok {
		tl = &Timeline{EntityID: entityID, Kind: kind}
		e.timelines[entityID] = tl
	}
	tl.events = make([]event.Event, len(events))
	for i, evt := range events {
		tl.events[i] = evt.Clone()
	}
	sort.SliceStable(tl.events, func(i, j int) bool {
		return tl.events[i].Timestamp.Before(tl.events[j].Timestamp)
	})
}
