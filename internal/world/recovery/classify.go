package recovery

import "strings"

// Kind categorizes a failure so the manager can choose recovery strategies.
type Kind string

const (
	KindTimelineCorruption Kind = "recovery.timeline_corruption"
	KindStateCorruption    Kind = "recovery.state_corruption"
	KindDataInconsistency  Kind = "recovery.data_inconsistency"
	KindPersistenceFailure Kind = "recovery.persistence_failure"
	KindCacheCorruption    Kind = "recovery.cache_corruption"
	KindValidationFailure  Kind = "recovery.validation_failure"
	KindSystemOverload     Kind = "recovery.system_overload"
	KindNetworkFailure     Kind = "recovery.network_failure"
	KindDependencyFailure  Kind = "recovery.dependency_failure"
)

// IsValid reports whether k is a known failure kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTimelineCorruption, KindStateCorruption, KindDataInconsistency,
		KindPersistenceFailure, KindCacheCorruption, KindValidationFailure,
		KindSystemOverload, KindNetworkFailure, KindDependencyFailure:
		return true
	}
	return false
}

// Context carries the circumstances of a failure into classification and
// strategy execution.
type Context struct {
	// WorldID is the affected world.
	WorldID string
	// Component names the subsystem that reported the failure.
	Component string
	// Hint lets the caller assert the failure kind directly, skipping
	// message inspection.
	Hint Kind
	// Metadata carries extra strategy inputs, such as a checkpoint label.
	Metadata map[string]string
}

// keyword tables are checked in order; the first kind with a matching
// keyword wins. More specific phrases come before generic ones.
var classifications = []struct {
	kind     Kind
	keywords []string
}{
	{KindTimelineCorruption, []string{"timeline", "chronolog", "out of order"}},
	{KindCacheCorruption, []string{"cache"}},
	{KindPersistenceFailure, []string{"persist", "save", "write", "disk", "database", "sql"}},
	{KindStateCorruption, []string{"world state", "character state", "corrupt", "snapshot"}},
	{KindDataInconsistency, []string{"inconsisten", "dangling", "mismatch", "orphan"}},
	{KindValidationFailure, []string{"validat", "invalid", "out of range"}},
	{KindSystemOverload, []string{"overload", "too many", "rate limit", "capacity"}},
	{KindNetworkFailure, []string{"network", "connection", "timeout", "unreachable"}},
	{KindDependencyFailure, []string{"dependency", "upstream", "service unavailable"}},
}

// componentKinds maps reporting components to their characteristic failure
// kind when the message alone is ambiguous.
var componentKinds = map[string]Kind{
	"timeline":    KindTimelineCorruption,
	"cache":       KindCacheCorruption,
	"storage":     KindPersistenceFailure,
	"coordinator": KindStateCorruption,
	"propagation": KindDataInconsistency,
}

// Classify determines the failure kind for err. An explicit hint wins,
// then message keywords, then the reporting component. Unmatched failures
// default to dependency failure, the broadest category.
func Classify(err error, rctx Context) Kind {
	if rctx.Hint.IsValid() {
		return rctx.Hint
	}
	if err != nil {
		msg := strings.ToLower(err.Error())
		for _, c := range classifications {
			for _, kw := range c.keywords {
				if strings.Contains(msg, kw) {
					return c.kind
				}
			}
		}
	}
	if kind, ok := componentKinds[rctx.Component]; ok {
		return kind
	}
	return KindDependencyFailure
}
