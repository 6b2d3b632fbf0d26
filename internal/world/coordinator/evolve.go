package coordinator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/platform/id"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

// ErrInvalidDuration indicates a non-positive evolution duration.
var ErrInvalidDuration = apperrors.New(apperrors.CodeWorldInvalidDuration, "evolution duration must be positive")

// evolutionStep bounds one sub-interval of simulated time. Long evolutions
// advance one simulated day at a time so scheduled tasks fire in order and
// partial progress persists.
const evolutionStep = 24 * time.Hour

// EvolutionReport summarizes one evolution run.
type EvolutionReport struct {
	// Start and End are the simulated times bracketing the run.
	Start time.Time
	End   time.Time
	// Steps counts the sub-intervals simulated.
	Steps int
	// TasksRun counts scheduled tasks that fired.
	TasksRun int
	// AutomaticEvents counts events emitted by the per-entity emission
	// roll.
	AutomaticEvents int
}

// Evolve advances a world's simulated time, firing due scheduled tasks
// and probabilistically emitting automatic events as it goes. Whether an
// entity fires at a given simulated time is a pure function of (world id,
// simulated time, entity id), so identical inputs evolve identically.
func (c *Coordinator) Evolve(ctx context.Context, worldID string, duration time.Duration) (EvolutionReport, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.Evolve",
		trace.WithAttributes(
			attribute.String("world.id", worldID),
			attribute.String("duration", duration.String())))
	defer span.End()

	if duration <= 0 {
		return EvolutionReport{}, ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mw, err := c.resident(ctx, worldID)
	if err != nil {
		return EvolutionReport{}, err
	}
	w := mw.world
	if w.Status == state.StatusPaused {
		return EvolutionReport{}, ErrWorldPaused
	}

	report := EvolutionReport{Start: w.CurrentTime}
	remaining := duration
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			break
		}
		step := evolutionStep
		if remaining < step {
			step = remaining
		}
		remaining -= step
		w.CurrentTime = w.CurrentTime.Add(step)
		report.Steps++

		for _, task := range w.DueTasks(w.CurrentTime) {
			c.runTask(mw, task)
			report.TasksRun++
		}
		report.AutomaticEvents += c.emitAutomatic(mw)
	}

	report.End = w.CurrentTime
	evolved := event.Event{
		Kind:         event.KindWorldEvolved,
		Title:        "Time passes",
		Description:  fmt.Sprintf("The world advances from %s to %s.", report.Start.Format(time.RFC3339), report.End.Format(time.RFC3339)),
		Timestamp:    w.CurrentTime,
		Significance: 2,
	}
	if err := mw.engine.AddEvent(worldID, evolved); err != nil {
		c.logger.Warn("evolution event rejected", "world_id", worldID, "error", err)
	}

	if err := c.persist(ctx, mw); err != nil {
		return report, err
	}
	c.logger.Info("world evolved", "world_id", worldID,
		"steps", report.Steps, "tasks_run", report.TasksRun, "automatic_events", report.AutomaticEvents)
	return report, nil
}

// runTask fires one due scheduled task, recording its event and
// rescheduling it when the payload asks for recurrence.
func (c *Coordinator) runTask(mw *managedWorld, task state.ScheduledTask) {
	entityID := task.EntityID
	if entityID == "" || mw.engine.Timeline(entityID) == nil {
		entityID = mw.world.ID
	}

	evt := event.Event{
		Kind:         event.KindScheduled,
		Title:        task.Kind,
		Description:  fmt.Sprintf("Scheduled task %s fires.", task.ID),
		Timestamp:    task.Due,
		Significance: 4,
	}
	if err := mw.engine.AddEvent(entityID, evt); err != nil {
		c.logger.Warn("scheduled event rejected",
			"world_id", mw.world.ID, "task_id", task.ID, "error", err)
	}

	if days, ok := recurDays(task.Payload); ok {
		mw.world.ScheduleTask(state.ScheduledTask{
			ID:       id.NewEventID(),
			Kind:     task.Kind,
			EntityID: task.EntityID,
			Due:      task.Due.Add(time.Duration(days) * 24 * time.Hour),
			Payload:  task.Payload,
		})
	}
}

func recurDays(payload map[string]any) (int, bool) {
	raw, ok := payload["recur_days"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, v > 0
	case float64:
		return int(v), v > 0
	}
	return 0, false
}

// emitAutomatic rolls every entity once for the current simulated time and
// records an automatic event per firing entity, up to the per-day cap.
// Entities are visited in sorted id order so the cap cuts deterministically.
func (c *Coordinator) emitAutomatic(mw *managedWorld) int {
	w := mw.world
	kinds := entityKinds(w)
	ids := make([]string, 0, len(kinds))
	for entityID := range kinds {
		ids = append(ids, entityID)
	}
	sort.Strings(ids)

	emitted := 0
	for _, entityID := range ids {
		if emitted >= c.cfg.EventsPerDay {
			break
		}
		kind := kinds[entityID]
		rate, ok := c.cfg.EmissionRates[kind]
		if !ok || rate <= 0 {
			continue
		}
		rng := emissionRNG(w.ID, w.CurrentTime, entityID)
		if rng.Float64() >= rate {
			continue
		}

		title, description := automaticNarrative(kind, entityID, rng)
		evt := event.Event{
			Kind:         event.KindAutomatic,
			Title:        title,
			Description:  description,
			Timestamp:    w.CurrentTime,
			Significance: 1 + rng.Intn(4),
		}
		if err := mw.engine.AddEvent(entityID, evt); err != nil {
			c.logger.Warn("automatic event rejected",
				"world_id", w.ID, "entity_id", entityID, "error", err)
			continue
		}
		emitted++
	}
	return emitted
}

// emissionRNG derives a PRNG whose seed is a stable hash of (world id,
// simulated time, entity id). The firing decision must stay a pure
// function of those three inputs.
func emissionRNG(worldID string, at time.Time, entityID string) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%d\x00%s", worldID, at.UTC().Unix(), entityID)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

var automaticTitles = map[event.EntityKind][]string{
	event.EntityCharacter: {
		"A chance encounter",
		"An old memory resurfaces",
		"A quiet resolution",
		"Rumors reach %s",
	},
	event.EntityLocation: {
		"The weather turns",
		"New faces arrive",
		"Something stirs in %s",
	},
	event.EntityObject: {
		"Wear and tarnish",
		"A forgotten mark is noticed",
	},
}

func automaticNarrative(kind event.EntityKind, entityID string, rng *rand.Rand) (string, string) {
	titles := automaticTitles[kind]
	if len(titles) == 0 {
		titles = []string{"Something happens"}
	}
	title := titles[rng.Intn(len(titles))]
	if strings.Contains(title, "%s") {
		title = fmt.Sprintf(title, entityID)
	}
	return title, fmt.Sprintf("Life goes on around %s.", entityID)
}
