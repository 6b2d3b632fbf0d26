package recovery

import (
	"strings"
	"time"

	apperrors "github.com/loreweave/loreweave/internal/errors"
	"github.com/loreweave/loreweave/internal/platform/id"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
)

var (
	// ErrWorldIDRequired indicates a missing world id.
	ErrWorldIDRequired = apperrors.New(apperrors.CodeWorldIDEmpty, "world id is required")
	// ErrCheckpointNotFound indicates no matching checkpoint exists.
	ErrCheckpointNotFound = apperrors.New(apperrors.CodeCheckpointNotFound, "checkpoint not found")
)

// defaultMaxCheckpoints bounds the per-world checkpoint stack.
const defaultMaxCheckpoints = 10

// Checkpoint is an immutable snapshot of a world and its timelines, taken
// before risky operations and consumed by rollback.
type Checkpoint struct {
	// ID uniquely identifies the checkpoint.
	ID string
	// WorldID is the snapshotted world.
	WorldID string
	// Label optionally names the checkpoint for reset-to-named-checkpoint.
	Label string
	// CreatedAt is the wall-clock snapshot time.
	CreatedAt time.Time
	// World is the deep-copied aggregate.
	World *state.World
	// Timelines maps entity id to its snapshotted events.
	Timelines map[string][]event.Event
	// TimelineKinds maps entity id to the owning entity kind.
	TimelineKinds map[string]event.EntityKind
}

// CreateCheckpoint snapshots a world onto its checkpoint stack. When the
// stack exceeds the bound the oldest checkpoint is evicted.
func (m *Manager) CreateCheckpoint(worldID, label string, world *state.World, timelines map[string][]event.Event, kinds map[string]event.EntityKind) (Checkpoint, error) {
	worldID = strings.TrimSpace(worldID)
	if worldID == "" || world == nil {
		return Checkpoint{}, ErrWorldIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Checkpoint{
		ID:            id.NewCheckpointID(),
		WorldID:       worldID,
		Label:         label,
		CreatedAt:     m.now().UTC(),
		World:         world.Clone(),
		TimelineKinds: make(map[string]event.EntityKind, len(kinds)),
	}
	if timelines != nil {
		snapshot.Timelines = make(map[string][]event.Event, len(timelines))
		for entityID, events := range timelines {
			cloned := make([]event.Event, len(events))
			for i, evt := range events {
				cloned[i] = evt.Clone()
			}
			snapshot.Timelines[entityID] = cloned
		}
	}
	for entityID, kind := range kinds {
		snapshot.TimelineKinds[entityID] = kind
	}

	stack := append(m.checkpoints[worldID], snapshot)
	if len(stack) > m.maxCheckpoints {
		stack = stack[len(stack)-m.maxCheckpoints:]
	}
	m.checkpoints[worldID] = stack
	return snapshot, nil
}

// ListCheckpoints returns the world's checkpoints, oldest first.
func (m *Manager) ListCheckpoints(worldID string) []Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.checkpoints[worldID]
	out := make([]Checkpoint, len(stack))
	copy(out, stack)
	return out
}

// Checkpoint returns a checkpoint by id, or the most recent one when the
// id is empty.
func (m *Manager) Checkpoint(worldID, checkpointID string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.checkpoints[worldID]
	if len(stack) == 0 {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	if checkpointID == "" {
		return stack[len(stack)-1], nil
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].ID == checkpointID {
			return stack[i], nil
		}
	}
	return Checkpoint{}, ErrCheckpointNotFound
}

// NamedCheckpoint returns the most recent checkpoint with the given label.
func (m *Manager) NamedCheckpoint(worldID, label string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.checkpoints[worldID]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Label == label {
			return stack[i], nil
		}
	}
	return Checkpoint{}, ErrCheckpointNotFound
}

// DropCheckpoints clears the world's checkpoint stack.
func (m *Manager) DropCheckpoints(worldID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, worldID)
}
