// Package cache provides a namespaced, versioned, TTL cache facade fronting
// a durable store.
//
// Four concerns are cached per world: the world-state blob, the flags blob,
// per-entity recent-event lists, and history blobs keyed by entity kind,
// entity id, detail level and an optional day window. A per-world monotonic
// version counter is advisory: it increments on every successful world-state
// save and lets readers detect stale blobs, but the cache itself never
// enforces it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/loreweave/loreweave/internal/storage"
)

// Backend is the opaque string-blob cache the facade fronts. Implementations
// are not required to support pattern deletes.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Default TTLs per concern.
const (
	DefaultStateTTL   = 30 * time.Minute
	DefaultFlagsTTL   = 30 * time.Minute
	DefaultRecentTTL  = 10 * time.Minute
	DefaultHistoryTTL = time.Hour
)

// DetailLevels enumerates the history detail-level variants the facade
// writes and therefore knows to invalidate. The backing store has no
// pattern delete, so history invalidation clears this bounded enumeration
// rather than a true wildcard. Variants outside the list expire by TTL.
var DetailLevels = []string{"summary", "standard", "detailed", "full"}

// DayWindows enumerates the common history day-window variants, with 0
// meaning unwindowed.
var DayWindows = []int{0, 7, 30, 90}

// Stats reports hit/miss/invalidation counters for one concern.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// Versioned is the multi-tier cache facade for world blobs.
type Versioned struct {
	backend Backend

	mu       sync.Mutex
	versions map[string]uint64
	stats    map[string]*Stats
}

// NewVersioned creates a cache facade over the backend.
func NewVersioned(backend Backend) *Versioned {
	return &Versioned{
		backend:  backend,
		versions: make(map[string]uint64),
		stats:    make(map[string]*Stats),
	}
}

// Concern names used for counter buckets.
const (
	ConcernState   = "state"
	ConcernFlags   = "flags"
	ConcernRecent  = "recent"
	ConcernHistory = "history"
)

func (v *Versioned) concern(name string) *Stats {
	s, ok := v.stats[name]
	if !ok {
		s = &Stats{}
		v.stats[name] = s
	}
	return s
}

func (v *Versioned) recordHit(name string)  { v.mu.Lock(); v.concern(name).Hits++; v.mu.Unlock() }
func (v *Versioned) recordMiss(name string) { v.mu.Lock(); v.concern(name).Misses++; v.mu.Unlock() }
func (v *Versioned) recordInvalidation(name string) {
	v.mu.Lock()
	v.concern(name).Invalidations++
	v.mu.Unlock()
}

// StatsFor returns a copy of the counters for a concern.
func (v *Versioned) StatsFor(name string) Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return *v.concern(name)
}

// AllStats returns a copy of every concern's counters.
func (v *Versioned) AllStats() map[string]Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]Stats, len(v.stats))
	for name, s := range v.stats {
		out[name] = *s
	}
	return out
}

// Version returns the world's current cache version.
func (v *Versioned) Version(worldID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[worldID]
}

// IncrementVersion bumps the world's cache version by exactly 1 and writes
// the new value through to the backend so other readers can detect
// staleness. The write-through is best effort.
func (v *Versioned) IncrementVersion(ctx context.Context, worldID string) uint64 {
	v.mu.Lock()
	v.versions[worldID]++
	version := v.versions[worldID]
	v.mu.Unlock()

	if v.backend != nil {
		_ = v.backend.Set(ctx, versionKey(worldID), strconv.FormatUint(version, 10), 0)
	}
	return version
}

func versionKey(worldID string) string {
	return fmt.Sprintf("world:%s:version", worldID)
}

func stateKey(worldID string) string {
	return fmt.Sprintf("world:%s:state", worldID)
}

func flagsKey(worldID string) string {
	return fmt.Sprintf("world:%s:flags", worldID)
}

func recentKey(worldID, entityID string) string {
	return fmt.Sprintf("world:%s:recent:%s", worldID, entityID)
}

func historyKey(worldID, entityKind, entityID, detail string, dayWindow int) string {
	if dayWindow > 0 {
		return fmt.Sprintf("world:%s:history:%s:%s:%s:%d", worldID, entityKind, entityID, detail, dayWindow)
	}
	return fmt.Sprintf("world:%s:history:%s:%s:%s", worldID, entityKind, entityID, detail)
}

func (v *Versioned) get(ctx context.Context, concern, key string) (string, bool, error) {
	if v.backend == nil {
		return "", false, errors.New("cache backend is not configured")
	}
	value, err := v.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			v.recordMiss(concern)
			return "", false, nil
		}
		v.recordMiss(concern)
		return "", false, err
	}
	v.recordHit(concern)
	return value, true, nil
}

func (v *Versioned) invalidate(ctx context.Context, concern, key string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	v.recordInvalidation(concern)
	return v.backend.Delete(ctx, key)
}

// GetWorldState returns the cached world-state blob, if present.
func (v *Versioned) GetWorldState(ctx context.Context, worldID string) (string, bool, error) {
	return v.get(ctx, ConcernState, stateKey(worldID))
}

// SetWorldState caches the world-state blob.
func (v *Versioned) SetWorldState(ctx context.Context, worldID, blob string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	return v.backend.Set(ctx, stateKey(worldID), blob, DefaultStateTTL)
}

// InvalidateWorldState drops the cached world-state blob.
func (v *Versioned) InvalidateWorldState(ctx context.Context, worldID string) error {
	return v.invalidate(ctx, ConcernState, stateKey(worldID))
}

// GetFlags returns the cached flags blob, if present.
func (v *Versioned) GetFlags(ctx context.Context, worldID string) (string, bool, error) {
	return v.get(ctx, ConcernFlags, flagsKey(worldID))
}

// SetFlags caches the flags blob.
func (v *Versioned) SetFlags(ctx context.Context, worldID, blob string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	return v.backend.Set(ctx, flagsKey(worldID), blob, DefaultFlagsTTL)
}

// InvalidateFlags drops the cached flags blob.
func (v *Versioned) InvalidateFlags(ctx context.Context, worldID string) error {
	return v.invalidate(ctx, ConcernFlags, flagsKey(worldID))
}

// GetRecentEvents returns the cached recent-events blob for an entity.
func (v *Versioned) GetRecentEvents(ctx context.Context, worldID, entityID string) (string, bool, error) {
	return v.get(ctx, ConcernRecent, recentKey(worldID, entityID))
}

// SetRecentEvents caches the recent-events blob for an entity.
func (v *Versioned) SetRecentEvents(ctx context.Context, worldID, entityID, blob string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	return v.backend.Set(ctx, recentKey(worldID, entityID), blob, DefaultRecentTTL)
}

// InvalidateRecentEvents drops the cached recent-events blob for an entity.
func (v *Versioned) InvalidateRecentEvents(ctx context.Context, worldID, entityID string) error {
	return v.invalidate(ctx, ConcernRecent, recentKey(worldID, entityID))
}

// GetHistory returns a cached history blob.
func (v *Versioned) GetHistory(ctx context.Context, worldID, entityKind, entityID, detail string, dayWindow int) (string, bool, error) {
	return v.get(ctx, ConcernHistory, historyKey(worldID, entityKind, entityID, detail, dayWindow))
}

// SetHistory caches a history blob.
func (v *Versioned) SetHistory(ctx context.Context, worldID, entityKind, entityID, detail string, dayWindow int, blob string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	return v.backend.Set(ctx, historyKey(worldID, entityKind, entityID, detail, dayWindow), blob, DefaultHistoryTTL)
}

// InvalidateHistory clears the bounded enumeration of common history
// variants for an entity. This is an accepted approximation of a wildcard
// delete; uncommon variants age out by TTL instead.
func (v *Versioned) InvalidateHistory(ctx context.Context, worldID, entityKind, entityID string) error {
	if v.backend == nil {
		return errors.New("cache backend is not configured")
	}
	var firstErr error
	for _, detail := range DetailLevels {
		for _, window := range DayWindows {
			err := v.invalidate(ctx, ConcernHistory, historyKey(worldID, entityKind, entityID, detail, window))
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// InvalidateWorld drops every per-world concern the facade can enumerate:
// state, flags, and the recent/history variants for the given entities.
func (v *Versioned) InvalidateWorld(ctx context.Context, worldID string, entities map[string]string) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(v.InvalidateWorldState(ctx, worldID))
	record(v.InvalidateFlags(ctx, worldID))
	for entityID, entityKind := range entities {
		record(v.InvalidateRecentEvents(ctx, worldID, entityID))
		record(v.InvalidateHistory(ctx, worldID, entityKind, entityID))
	}
	return firstErr
}
