package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// Ensure EntityStore implements the interface.
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore implements driven.EntityStore over the entities table.
// Records are stored as JSON payloads keyed by (entity_type, external_id).
type EntityStore struct {
	store *Store
}

// Upsert inserts or updates records in one transaction.
// A record older than the stored copy is skipped.
func (s *EntityStore) Upsert(
	ctx context.Context,
	entityType domain.EntityType,
	records []domain.RemoteEntity,
) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	if !entityType.IsValid() {
		return result, &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	if len(records) == 0 {
		return result, nil
	}

	s.store.writeMu.Lock()
	defer s.store.writeMu.Unlock()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lookup, err := tx.PrepareContext(ctx,
		"SELECT modified_at FROM entities WHERE entity_type = ? AND external_id = ?")
	if err != nil {
		return result, fmt.Errorf("preparing lookup: %w", err)
	}
	defer lookup.Close()

	write, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (entity_type, external_id, modified_at, payload, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, external_id) DO UPDATE SET
			modified_at = excluded.modified_at,
			payload = excluded.payload,
			synced_at = excluded.synced_at
		WHERE excluded.modified_at >= entities.modified_at
	`)
	if err != nil {
		return result, fmt.Errorf("preparing upsert: %w", err)
	}
	defer write.Close()

	syncedAt := unixNano(s.store.now())
	for _, rec := range records {
		if rec.Type() != entityType {
			return domain.UpsertResult{}, &domain.ValidationError{
				Field:  "records",
				Reason: fmt.Sprintf("%s record %s in %s batch", rec.Type(), rec.ExternalID(), entityType),
			}
		}

		modified := unixNano(rec.ModifiedAt())
		var existing int64
		err := lookup.QueryRowContext(ctx, string(entityType), rec.ExternalID()).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result.Inserted++
		case err != nil:
			return domain.UpsertResult{}, fmt.Errorf("looking up %s %s: %w", entityType, rec.ExternalID(), err)
		case modified < existing:
			result.Skipped++
			continue
		default:
			result.Updated++
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return domain.UpsertResult{}, fmt.Errorf("marshalling %s %s: %w", entityType, rec.ExternalID(), err)
		}
		if _, err := write.ExecContext(ctx, string(entityType), rec.ExternalID(), modified, string(payload), syncedAt); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("upserting %s %s: %w", entityType, rec.ExternalID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("committing upsert: %w", err)
	}
	return result, nil
}

// LastSyncedMarker returns the newest modified_at for the entity type, or nil
// when no stored record carries one.
func (s *EntityStore) LastSyncedMarker(ctx context.Context, entityType domain.EntityType) (*time.Time, error) {
	var marker sql.NullInt64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT MAX(modified_at) FROM entities WHERE entity_type = ?", string(entityType)).Scan(&marker)
	if err != nil {
		return nil, fmt.Errorf("querying last synced marker: %w", err)
	}
	if !marker.Valid || marker.Int64 == 0 {
		return nil, nil
	}
	t := fromUnixNano(marker.Int64)
	return &t, nil
}

// Count returns how many records of the entity type are stored.
func (s *EntityStore) Count(ctx context.Context, entityType domain.EntityType) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entities WHERE entity_type = ?", string(entityType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", entityType, err)
	}
	return n, nil
}

// Get returns one stored record. Returns domain.ErrNotFound if it is missing.
func (s *EntityStore) Get(ctx context.Context, entityType domain.EntityType, externalID string) (domain.RemoteEntity, error) {
	var payload string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT payload FROM entities WHERE entity_type = ? AND external_id = ?",
		string(entityType), externalID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s %s: %w", entityType, externalID, err)
	}
	return decodeEntity(entityType, []byte(payload))
}

// decodeEntity unmarshals a stored payload into its concrete type.
func decodeEntity(entityType domain.EntityType, payload []byte) (domain.RemoteEntity, error) {
	var (
		rec domain.RemoteEntity
		err error
	)
	switch entityType {
	case domain.EntityUsers:
		var u domain.User
		err = json.Unmarshal(payload, &u)
		rec = u
	case domain.EntityProjects:
		var p domain.Project
		err = json.Unmarshal(payload, &p)
		rec = p
	case domain.EntityTasks:
		var t domain.Task
		err = json.Unmarshal(payload, &t)
		rec = t
	case domain.EntityWorklogs:
		var w domain.Worklog
		err = json.Unmarshal(payload, &w)
		rec = w
	default:
		return nil, &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", entityType, err)
	}
	return rec, nil
}
