// Package sqlite provides the SQLite-backed durable store. Worlds persist
// as JSON aggregates; timeline events persist row-per-event with the
// fields the filter grammar exposes broken out into columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loreweave/loreweave/internal/platform/storage/sqlitemigrate"
	"github.com/loreweave/loreweave/internal/storage"
	"github.com/loreweave/loreweave/internal/storage/sqlite/migrations"
	"github.com/loreweave/loreweave/internal/world/event"
	"github.com/loreweave/loreweave/internal/world/state"
	"github.com/loreweave/loreweave/internal/world/timeline/filter"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed implementation of storage.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at the provided path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.CoreFS, "core"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database. Nil-safe so callers can defer it
// in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveWorldState upserts a world aggregate as a JSON blob.
func (s *Store) SaveWorldState(ctx context.Context, world *state.World) error {
	if world == nil || world.ID == "" {
		return fmt.Errorf("world with id is required")
	}
	blob, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("encode world %s: %w", world.ID, err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO worlds (id, state, version, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET state = excluded.state, version = excluded.version, updated_at = excluded.updated_at`,
		world.ID, string(blob), world.Version, toMillis(world.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save world %s: %w", world.ID, err)
	}
	return nil
}

// LoadWorldState loads a world aggregate, or storage.ErrNotFound.
func (s *Store) LoadWorldState(ctx context.Context, id string) (*state.World, error) {
	var blob string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT state FROM worlds WHERE id = ?", id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load world %s: %w", id, err)
	}

	var w state.World
	if err := json.Unmarshal([]byte(blob), &w); err != nil {
		return nil, fmt.Errorf("decode world %s: %w", id, err)
	}
	return &w, nil
}

// ListWorldIDs lists every stored world id in lexical order.
func (s *Store) ListWorldIDs(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT id FROM worlds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan world id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read world ids: %w", err)
	}
	return ids, nil
}

// DeleteWorld removes a world and its timeline events.
func (s *Store) DeleteWorld(ctx context.Context, id string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete world: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM timeline_events WHERE world_id = ?", id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete timeline events for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM worlds WHERE id = ?", id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete world %s: %w", id, err)
	}
	return tx.Commit()
}

// AppendTimelineEvent appends one event row.
func (s *Store) AppendTimelineEvent(ctx context.Context, worldID, entityID string, kind event.EntityKind, evt event.Event) error {
	if worldID == "" || entityID == "" {
		return fmt.Errorf("world id and entity id are required")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}

	filtered := 0
	if evt.Filtered {
		filtered = 1
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO timeline_events
    (world_id, entity_id, entity_kind, event_id, event_kind, title, location_id, significance, filtered, timestamp, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		worldID, entityID, string(kind), evt.ID, string(evt.Kind), evt.Title,
		evt.LocationID, evt.Significance, filtered, toMillis(evt.Timestamp), string(payload))
	if err != nil {
		return fmt.Errorf("append event %s: %w", evt.ID, err)
	}
	return nil
}

// ListTimelineEvents lists stored events for a world, applying the
// query's structured bounds and its AIP-160 filter expression, in
// chronological then insertion order.
func (s *Store) ListTimelineEvents(ctx context.Context, worldID string, query storage.EventQuery) ([]event.Event, error) {
	if worldID == "" {
		return nil, fmt.Errorf("world id is required")
	}

	clauses := []string{"world_id = ?"}
	params := []any{worldID}
	if query.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		params = append(params, query.EntityID)
	}
	if !query.From.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		params = append(params, toMillis(query.From))
	}
	if !query.To.IsZero() {
		clauses = append(clauses, "timestamp <= ?")
		params = append(params, toMillis(query.To))
	}
	if query.MinSignificance > 0 {
		clauses = append(clauses, "significance >= ?")
		params = append(params, query.MinSignificance)
	}
	if query.Filter != "" {
		cond, err := filter.ParseEventFilter(query.Filter)
		if err != nil {
			return nil, fmt.Errorf("parse event filter: %w", err)
		}
		if cond.Clause != "" {
			clauses = append(clauses, cond.Clause)
			params = append(params, cond.Params...)
		}
	}

	sqlQuery := "SELECT payload FROM timeline_events WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY timestamp, seq"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		params = append(params, query.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event payload: %w", err)
		}
		var evt event.Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read timeline events: %w", err)
	}
	return events, nil
}

// DeleteTimeline removes every stored event for one entity.
func (s *Store) DeleteTimeline(ctx context.Context, worldID, entityID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM timeline_events WHERE world_id = ? AND entity_id = ?", worldID, entityID)
	if err != nil {
		return fmt.Errorf("delete timeline %s/%s: %w", worldID, entityID, err)
	}
	return nil
}
