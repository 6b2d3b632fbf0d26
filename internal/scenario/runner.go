package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/narrative"
	"github.com/loreweave/loreweave/internal/platform/id"
	"github.com/loreweave/loreweave/internal/world/coordinator"
	"github.com/loreweave/loreweave/internal/world/state"
)

// Report summarizes one scenario run.
type Report struct {
	// WorldID is the world the scenario drove.
	WorldID string
	// Steps is the number of executed steps, seed steps included.
	Steps int
	// Decisions counts recorded decisions.
	Decisions int
	// Evolved is the total simulated time advanced by evolve steps.
	Evolved time.Duration
	// Issues counts consistency issues found by validate steps.
	Issues int
}

// Runner replays scenarios against a coordinator.
type Runner struct {
	worlds *coordinator.Coordinator
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner bound to the given coordinator.
func NewRunner(worlds *coordinator.Coordinator, opts ...RunnerOption) *Runner {
	r := &Runner{worlds: worlds, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the scenario's steps in order. Seed steps before the first
// live step are gathered into the initial world; the world is created
// lazily at the first live step, or at the end of a pure-seed scenario.
// Run stops at the first failing step.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (Report, error) {
	report := Report{WorldID: sc.WorldID}
	seed := coordinator.Seed{
		Characters: map[string]state.Attributes{},
		Locations:  map[string]state.Attributes{},
		Objects:    map[string]state.Attributes{},
		Flags:      map[string]any{},
	}
	initialized := false

	ensure := func() error {
		if initialized {
			return nil
		}
		if _, err := r.worlds.Initialize(ctx, sc.WorldID, seed); err != nil {
			return err
		}
		initialized = true
		return nil
	}

	for i, step := range sc.Steps {
		if err := r.runStep(ctx, sc, step, &seed, &report, initialized, ensure); err != nil {
			return report, fmt.Errorf("scenario %s step %d (%s): %w", sc.Name, i+1, step.Kind, err)
		}
		if !isSeedStep(step.Kind) {
			initialized = true
		}
		report.Steps++
	}

	if err := ensure(); err != nil {
		return report, err
	}
	r.logger.Info("scenario complete",
		"scenario", sc.Name,
		"world_id", sc.WorldID,
		"steps", report.Steps)
	return report, nil
}

func isSeedStep(kind string) bool {
	switch kind {
	case "start", "character", "location", "object", "flag":
		return true
	}
	return false
}

func (r *Runner) runStep(ctx context.Context, sc *Scenario, step Step, seed *coordinator.Seed, report *Report, initialized bool, ensure func() error) error {
	switch step.Kind {
	case "start":
		at, err := time.Parse(time.RFC3339, stringArg(step.Args, "at"))
		if err != nil {
			return err
		}
		seed.Start = at
		return nil
	case "character":
		return seedEntity(seed.Characters, step, initialized, func() error {
			_, err := r.worlds.ApplyChanges(ctx, sc.WorldID, []state.Change{{
				Op:         state.OpAddCharacter,
				EntityID:   stringArg(step.Args, "id"),
				Attributes: attrsArg(step.Args),
			}}, coordinator.AllOrNothing())
			return err
		})
	case "location":
		return seedEntity(seed.Locations, step, initialized, func() error {
			_, err := r.worlds.ApplyChanges(ctx, sc.WorldID, []state.Change{{
				Op:         state.OpAddLocation,
				EntityID:   stringArg(step.Args, "id"),
				Attributes: attrsArg(step.Args),
			}}, coordinator.AllOrNothing())
			return err
		})
	case "object":
		return seedEntity(seed.Objects, step, initialized, func() error {
			_, err := r.worlds.ApplyChanges(ctx, sc.WorldID, []state.Change{{
				Op:         state.OpAddObject,
				EntityID:   stringArg(step.Args, "id"),
				Attributes: attrsArg(step.Args),
			}}, coordinator.AllOrNothing())
			return err
		})
	case "flag":
		if !initialized {
			seed.Flags[stringArg(step.Args, "name")] = step.Args["value"]
			return nil
		}
		return r.worlds.SetFlag(ctx, sc.WorldID, stringArg(step.Args, "name"), step.Args["value"])
	case "change":
		if err := ensure(); err != nil {
			return err
		}
		_, err := r.worlds.ApplyChanges(ctx, sc.WorldID, []state.Change{changeFrom(step.Args)}, coordinator.AllOrNothing())
		return err
	case "decision":
		if err := ensure(); err != nil {
			return err
		}
		if _, err := r.worlds.RecordDecision(ctx, sc.WorldID, decisionFrom(step.Args)); err != nil {
			return err
		}
		report.Decisions++
		return nil
	case "evolve":
		if err := ensure(); err != nil {
			return err
		}
		d := time.Duration(floatArg(step.Args, "hours") * float64(time.Hour))
		if _, err := r.worlds.Evolve(ctx, sc.WorldID, d); err != nil {
			return err
		}
		report.Evolved += d
		return nil
	case "schedule":
		if err := ensure(); err != nil {
			return err
		}
		return r.worlds.ScheduleTask(ctx, sc.WorldID, taskFrom(step.Args))
	case "checkpoint":
		if err := ensure(); err != nil {
			return err
		}
		_, err := r.worlds.CreateCheckpoint(ctx, sc.WorldID, stringArg(step.Args, "label"))
		return err
	case "rollback":
		if err := ensure(); err != nil {
			return err
		}
		_, err := r.worlds.Rollback(ctx, sc.WorldID, stringArg(step.Args, "checkpoint"))
		return err
	case "pause":
		if err := ensure(); err != nil {
			return err
		}
		return r.worlds.Pause(ctx, sc.WorldID)
	case "resume":
		if err := ensure(); err != nil {
			return err
		}
		return r.worlds.Resume(ctx, sc.WorldID)
	case "validate":
		if err := ensure(); err != nil {
			return err
		}
		vr, err := r.worlds.ValidateConsistency(ctx, sc.WorldID)
		if err != nil {
			return err
		}
		report.Issues += len(vr.Issues)
		return nil
	default:
		return apperrors.Newf(apperrors.CodeScenarioUnknownStep, "unknown scenario step %q", step.Kind)
	}
}

func seedEntity(into map[string]state.Attributes, step Step, initialized bool, live func() error) error {
	if initialized {
		return live()
	}
	into[stringArg(step.Args, "id")] = attrsArg(step.Args)
	return nil
}

func changeFrom(args map[string]any) state.Change {
	change := state.Change{
		Op:       state.ChangeOp(stringArg(args, "op")),
		EntityID: stringArg(args, "entity"),
		FlagName: stringArg(args, "flag"),
	}
	if v, ok := args["value"]; ok {
		change.FlagValue = v
	}
	if attrs, ok := args["attrs"].(map[string]any); ok {
		change.Attributes = state.Attributes(attrs)
	}
	if hours := floatArg(args, "hours"); hours > 0 {
		change.Duration = time.Duration(hours * float64(time.Hour))
	}
	return change
}

func decisionFrom(args map[string]any) narrative.Decision {
	d := narrative.Decision{
		ID:         stringArg(args, "id"),
		Category:   narrative.Category(stringArg(args, "category")),
		Title:      stringArg(args, "title"),
		Text:       stringArg(args, "text"),
		Weight:     floatArg(args, "weight"),
		ActorID:    stringArg(args, "actor"),
		LocationID: stringArg(args, "location"),
	}
	if d.ID == "" {
		d.ID = id.NewEventID()
	}
	if d.Weight == 0 {
		d.Weight = 1
	}
	if impact := floatArg(args, "impact"); impact != 0 {
		d.EmotionalImpact = impact
	}
	return d
}

func taskFrom(args map[string]any) state.ScheduledTask {
	task := state.ScheduledTask{
		ID:       stringArg(args, "id"),
		Kind:     stringArg(args, "kind"),
		EntityID: stringArg(args, "entity"),
	}
	if due, err := time.Parse(time.RFC3339, stringArg(args, "due")); err == nil {
		task.Due = due
	}
	if payload, ok := args["payload"].(map[string]any); ok {
		task.Payload = payload
	}
	return task
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func attrsArg(args map[string]any) state.Attributes {
	if attrs, ok := args["attrs"].(map[string]any); ok {
		return state.Attributes(attrs)
	}
	return state.Attributes{}
}
