package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

// IssueCategory groups consistency findings.
type IssueCategory string

const (
	IssueOrdering    IssueCategory = "ordering"
	IssueFarFuture   IssueCategory = "far_future"
	IssueDuplicate   IssueCategory = "duplicate"
	IssueDanglingRef IssueCategory = "dangling_reference"
)

// Issue is one consistency finding. Findings are reported, never
// auto-fixed; repair runs only through explicit recovery.
type Issue struct {
	Category IssueCategory
	EntityID string
	EventID  string
	Message  string
}

// ValidationReport lists consistency findings by category.
type ValidationReport struct {
	Issues []Issue
}

// Clean reports whether no issues were found.
func (r ValidationReport) Clean() bool { return len(r.Issues) == 0 }

// ByCategory groups the issues.
func (r ValidationReport) ByCategory() map[IssueCategory][]Issue {
	grouped := make(map[IssueCategory][]Issue)
	for _, issue := range r.Issues {
		grouped[issue.Category] = append(grouped[issue.Category], issue)
	}
	return grouped
}

// ValidateConsistency checks every timeline for ordering violations,
// far-future timestamps, and duplicate events, and checks that event
// cross-references resolve to existing entities.
func (c *Coordinator) ValidateConsistency(ctx context.Context, worldID string) (ValidationReport, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.ValidateConsistency",
		trace.WithAttributes(attribute.String("world.id", worldID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return ValidationReport{}, err
	}

	var report ValidationReport
	w := mw.world
	horizon := w.CurrentTime.Add(24 * time.Hour)

	for _, entityID := range mw.engine.EntityIDs() {
		events := mw.engine.Timeline(entityID).Events()
		type triple struct {
			ts          int64
			title, desc string
		}
		seen := make(map[triple]string, len(events))

		for i, evt := range events {
			if i > 0 && evt.Timestamp.Before(events[i-1].Timestamp) {
				report.Issues = append(report.Issues, Issue{
					Category: IssueOrdering,
					EntityID: entityID,
					EventID:  evt.ID,
					Message:  fmt.Sprintf("event %s precedes its predecessor", evt.ID),
				})
			}
			if evt.Timestamp.After(horizon) {
				report.Issues = append(report.Issues, Issue{
					Category: IssueFarFuture,
					EntityID: entityID,
					EventID:  evt.ID,
					Message:  fmt.Sprintf("event %s is more than a day past simulated time", evt.ID),
				})
			}
			key := triple{evt.Timestamp.UnixMilli(), evt.Title, evt.Description}
			if firstID, dup := seen[key]; dup {
				report.Issues = append(report.Issues, Issue{
					Category: IssueDuplicate,
					EntityID: entityID,
					EventID:  evt.ID,
					Message:  fmt.Sprintf("event %s duplicates %s", evt.ID, firstID),
				})
			} else {
				seen[key] = evt.ID
			}

			report.Issues = append(report.Issues, danglingRefs(w, entityID, evt)...)
		}
	}
	return report, nil
}

// danglingRefs flags participants and locations that no longer resolve to
// an existing entity. Removed entities keep their timelines, so only
// references from other entities' events count as dangling.
func danglingRefs(w *state.World, entityID string, evt event.Event) []Issue {
	var issues []Issue
	for _, participant := range evt.Participants {
		if participant == entityID || participant == w.ID {
			continue
		}
		if _, _, ok := w.Entity(participant); !ok {
			issues = append(issues, Issue{
				Category: IssueDanglingRef,
				EntityID: entityID,
				EventID:  evt.ID,
				Message:  fmt.Sprintf("participant %s does not exist", participant),
			})
		}
	}
	if evt.LocationID != "" {
		if _, ok := w.Locations[evt.LocationID]; !ok {
			issues = append(issues, Issue{
				Category: IssueDanglingRef,
				EntityID: entityID,
				EventID:  evt.ID,
				Message:  fmt.Sprintf("location %s does not exist", evt.LocationID),
			})
		}
	}
	return issues
}
