package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driven"
)

// Ensure EntityStore implements the interface.
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore is an in-memory implementation of driven.EntityStore.
// A single lock serialises upserts, and a stored record is only replaced by
// one whose ModifiedAt is not older.
type EntityStore struct {
	mu      sync.RWMutex
	records map[domain.EntityType]map[string]domain.RemoteEntity
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		records: make(map[domain.EntityType]map[string]domain.RemoteEntity),
	}
}

// Upsert inserts or updates records keyed by external id.
func (s *EntityStore) Upsert(
	_ context.Context,
	entityType domain.EntityType,
	records []domain.RemoteEntity,
) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	if !entityType.IsValid() {
		return result, &domain.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[entityType]
	if !ok {
		byID = make(map[string]domain.RemoteEntity)
		s.records[entityType] = byID
	}

	for _, rec := range records {
		if rec.Type() != entityType {
			return result, &domain.ValidationError{
				Field:  "records",
				Reason: fmt.Sprintf("%s record %s in %s batch", rec.Type(), rec.ExternalID(), entityType),
			}
		}

		existing, found := byID[rec.ExternalID()]
		switch {
		case !found:
			result.Inserted++
		case rec.ModifiedAt().Before(existing.ModifiedAt()):
			result.Skipped++
			continue
		default:
			result.Updated++
		}
		byID[rec.ExternalID()] = rec
	}

	return result, nil
}

// LastSyncedMarker returns the newest ModifiedAt stored for the entity type.
func (s *EntityStore) LastSyncedMarker(_ context.Context, entityType domain.EntityType) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest time.Time
	for _, rec := range s.records[entityType] {
		if rec.ModifiedAt().After(newest) {
			newest = rec.ModifiedAt()
		}
	}
	if newest.IsZero() {
		return nil, nil
	}
	return &newest, nil
}

// Count returns how many records of the entity type are stored.
func (s *EntityStore) Count(_ context.Context, entityType domain.EntityType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[entityType]), nil
}

// Get returns a stored record.
func (s *EntityStore) Get(entityType domain.EntityType, externalID string) (domain.RemoteEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[entityType][externalID]
	return rec, ok
}
