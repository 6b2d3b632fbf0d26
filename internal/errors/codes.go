// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// World errors
	CodeWorldIDEmpty         Code = "WORLD_ID_EMPTY"
	CodeWorldNotFound        Code = "WORLD_NOT_FOUND"
	CodeWorldExists          Code = "WORLD_ALREADY_EXISTS"
	CodeWorldStatusDisallows Code = "WORLD_STATUS_DISALLOWS_OPERATION"
	CodeWorldInvalidDuration Code = "WORLD_INVALID_DURATION"

	// Timeline errors
	CodeTimelineMissing          Code = "TIMELINE_MISSING"
	CodeTimelineEntityIDEmpty    Code = "TIMELINE_ENTITY_ID_EMPTY"
	CodeEventTimestampFarFuture  Code = "EVENT_TIMESTAMP_FAR_FUTURE"
	CodeEventDuplicate           Code = "EVENT_DUPLICATE"
	CodeEventLocationConflict    Code = "EVENT_LOCATION_CONFLICT"
	CodeEventInvalidSignificance Code = "EVENT_INVALID_SIGNIFICANCE"
	CodeEventInvalidImpact       Code = "EVENT_INVALID_EMOTIONAL_IMPACT"

	// Propagation errors
	CodePropagationUnknownCategory Code = "PROPAGATION_UNKNOWN_CATEGORY"
	CodePropagationNoOrigin        Code = "PROPAGATION_NO_ORIGIN"
	CodeDecisionEmpty              Code = "DECISION_EMPTY"

	// Checkpoint/recovery errors
	CodeCheckpointNotFound Code = "CHECKPOINT_NOT_FOUND"
	CodeRecoveryExhausted  Code = "RECOVERY_STRATEGIES_EXHAUSTED"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"

	// Cache errors
	CodeCacheBackendMissing Code = "CACHE_BACKEND_MISSING"

	// Scenario errors
	CodeScenarioInvalidScript Code = "SCENARIO_INVALID_SCRIPT"
	CodeScenarioUnknownStep   Code = "SCENARIO_UNKNOWN_STEP"
)
