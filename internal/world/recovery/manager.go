package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/loreweave/loreweave/internal/errors"
)

// Strategy names a recovery action. Strategies run in order until one
// succeeds.
type Strategy string

const (
	StrategyRollbackToCheckpoint         Strategy = "rollback_to_checkpoint"
	StrategyRebuildFromSignificantEvents Strategy = "rebuild_from_significant_events"
	StrategyResetToNamedCheckpoint       Strategy = "reset_to_named_checkpoint"
	StrategyGracefulDegradation          Strategy = "graceful_degradation"
	StrategyCacheInvalidation            Strategy = "cache_invalidation"
	StrategyDataRepair                   Strategy = "data_repair"
	StrategyFallbackMode                 Strategy = "fallback_mode"
	StrategySystemRestart                Strategy = "system_restart"
)

// strategyPlans lists the ordered strategies per failure kind. System
// restart appears last wherever it appears at all.
var strategyPlans = map[Kind][]Strategy{
	KindTimelineCorruption: {StrategyRollbackToCheckpoint, StrategyRebuildFromSignificantEvents, StrategyFallbackMode},
	KindStateCorruption:    {StrategyRollbackToCheckpoint, StrategyResetToNamedCheckpoint, StrategyFallbackMode, StrategySystemRestart},
	KindDataInconsistency:  {StrategyDataRepair, StrategyRollbackToCheckpoint, StrategyFallbackMode},
	KindPersistenceFailure: {StrategyGracefulDegradation, StrategyFallbackMode, StrategySystemRestart},
	KindCacheCorruption:    {StrategyCacheInvalidation, StrategyFallbackMode},
	KindValidationFailure:  {StrategyDataRepair, StrategyGracefulDegradation},
	KindSystemOverload:     {StrategyGracefulDegradation, StrategySystemRestart},
	KindNetworkFailure:     {StrategyGracefulDegradation, StrategyFallbackMode, StrategySystemRestart},
	KindDependencyFailure:  {StrategyFallbackMode, StrategyGracefulDegradation, StrategySystemRestart},
}

// Hooks binds strategies to the subsystems that carry them out. A nil hook
// marks its strategy as not applicable; the manager moves on to the next
// one in the plan.
type Hooks struct {
	// RestoreCheckpoint applies a snapshot back onto the live world.
	RestoreCheckpoint func(ctx context.Context, cp Checkpoint) error
	// RebuildTimelines reconstructs timelines keeping only events at or
	// above the given significance.
	RebuildTimelines func(ctx context.Context, worldID string, minSignificance int) error
	// InvalidateCaches drops all cached views of the world.
	InvalidateCaches func(ctx context.Context, worldID string) error
	// Degrade switches the world into degraded operation.
	Degrade func(ctx context.Context, worldID string) error
	// RepairData fixes detectable inconsistencies in place.
	RepairData func(ctx context.Context, worldID string) error
	// EnterFallback routes the component onto a reduced fallback path.
	EnterFallback func(ctx context.Context, worldID, component string) error
	// Restart restarts the affected subsystem. Last resort.
	Restart func(ctx context.Context, worldID string) error
}

// rebuildMinSignificance keeps only major events when rebuilding a
// corrupted timeline.
const rebuildMinSignificance = 7

// Attempt records a single strategy execution within a recovery run.
type Attempt struct {
	Strategy Strategy
	Err      error
}

// Report summarizes a recovery run.
type Report struct {
	// Kind is the classified failure.
	Kind Kind
	// Attempts lists every strategy tried, in order.
	Attempts []Attempt
	// Succeeded is the strategy that resolved the failure, empty when
	// recovery was exhausted.
	Succeeded Strategy
	// Restarted reports that the system restart strategy ran, whether or
	// not it succeeded. Restarts are always surfaced.
	Restarted bool
	// StartedAt and Duration time the run.
	StartedAt time.Time
	Duration  time.Duration
}

// Manager classifies failures, runs recovery strategies, and maintains
// per-world checkpoint stacks and health probes.
type Manager struct {
	mu             sync.Mutex
	hooks          Hooks
	checkpoints    map[string][]Checkpoint
	maxCheckpoints int
	health         *HealthMonitor
	logger         *slog.Logger
	now            func() time.Time
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithMaxCheckpoints bounds the per-world checkpoint stack.
func WithMaxCheckpoints(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxCheckpoints = n
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the structured logger used to surface recovery runs.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager builds a recovery manager with the given strategy hooks.
func NewManager(hooks Hooks, opts ...Option) *Manager {
	m := &Manager{
		hooks:          hooks,
		checkpoints:    make(map[string][]Checkpoint),
		maxCheckpoints: defaultMaxCheckpoints,
		health:         NewHealthMonitor(),
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Health exposes the manager's health monitor.
func (m *Manager) Health() *HealthMonitor { return m.health }

// Rollback restores the world to a checkpoint. An empty checkpoint id
// selects the most recent snapshot.
func (m *Manager) Rollback(ctx context.Context, worldID, checkpointID string) (Checkpoint, error) {
	cp, err := m.Checkpoint(worldID, checkpointID)
	if err != nil {
		return Checkpoint{}, err
	}
	if m.hooks.RestoreCheckpoint == nil {
		return Checkpoint{}, fmt.Errorf("rollback checkpoint %s: no restore hook", cp.ID)
	}
	if err := m.hooks.RestoreCheckpoint(ctx, cp); err != nil {
		return Checkpoint{}, fmt.Errorf("rollback checkpoint %s: %w", cp.ID, err)
	}
	return cp, nil
}

// Recover classifies err and runs the strategy plan for its kind until a
// strategy succeeds. When every strategy fails the returned report lists
// all attempts and the error carries the recovery-exhausted code.
func (m *Manager) Recover(ctx context.Context, cause error, rctx Context) (Report, error) {
	report := Report{
		Kind:      Classify(cause, rctx),
		StartedAt: m.now().UTC(),
	}
	defer func() { report.Duration = m.now().UTC().Sub(report.StartedAt) }()

	m.logger.Warn("recovery started",
		"world_id", rctx.WorldID,
		"component", rctx.Component,
		"kind", string(report.Kind),
		"cause", fmt.Sprint(cause))

	for _, strategy := range strategyPlans[report.Kind] {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if strategy == StrategySystemRestart {
			report.Restarted = true
		}
		err := m.execute(ctx, strategy, rctx)
		report.Attempts = append(report.Attempts, Attempt{Strategy: strategy, Err: err})
		if err == nil {
			report.Succeeded = strategy
			m.logger.Info("recovery succeeded",
				"world_id", rctx.WorldID,
				"kind", string(report.Kind),
				"strategy", string(strategy))
			return report, nil
		}
		m.logger.Warn("recovery strategy failed",
			"world_id", rctx.WorldID,
			"strategy", string(strategy),
			"error", err)
	}

	return report, apperrors.Wrap(apperrors.CodeRecoveryExhausted,
		fmt.Sprintf("all %s recovery strategies failed", report.Kind), cause)
}

// errStrategyUnavailable marks strategies whose hook is not wired.
var errStrategyUnavailable = fmt.Errorf("strategy unavailable")

func (m *Manager) execute(ctx context.Context, strategy Strategy, rctx Context) error {
	switch strategy {
	case StrategyRollbackToCheckpoint:
		_, err := m.Rollback(ctx, rctx.WorldID, "")
		return err
	case StrategyResetToNamedCheckpoint:
		label := rctx.Metadata["checkpoint_label"]
		if label == "" {
			return errStrategyUnavailable
		}
		cp, err := m.NamedCheckpoint(rctx.WorldID, label)
		if err != nil {
			return err
		}
		if m.hooks.RestoreCheckpoint == nil {
			return errStrategyUnavailable
		}
		return m.hooks.RestoreCheckpoint(ctx, cp)
	case StrategyRebuildFromSignificantEvents:
		if m.hooks.RebuildTimelines == nil {
			return errStrategyUnavailable
		}
		return m.hooks.RebuildTimelines(ctx, rctx.WorldID, rebuildMinSignificance)
	case StrategyCacheInvalidation:
		if m.hooks.InvalidateCaches == nil {
			return errStrategyUnavailable
		}
		return m.hooks.InvalidateCaches(ctx, rctx.WorldID)
	case StrategyGracefulDegradation:
		if m.hooks.Degrade == nil {
			return errStrategyUnavailable
		}
		return m.hooks.Degrade(ctx, rctx.WorldID)
	case StrategyDataRepair:
		if m.hooks.RepairData == nil {
			return errStrategyUnavailable
		}
		return m.hooks.RepairData(ctx, rctx.WorldID)
	case StrategyFallbackMode:
		if m.hooks.EnterFallback == nil {
			return errStrategyUnavailable
		}
		return m.hooks.EnterFallback(ctx, rctx.WorldID, rctx.Component)
	case StrategySystemRestart:
		if m.hooks.Restart == nil {
			return errStrategyUnavailable
		}
		return m.hooks.Restart(ctx, rctx.WorldID)
	}
	return fmt.Errorf("unknown strategy %q", strategy)
}

